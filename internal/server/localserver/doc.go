// Package localserver serves the admin API on a Unix domain socket.
//
// Access is controlled by file system permissions on the socket, so the
// network allow-list does not apply:
//
//	curl --unix-socket /run/meshkv/admin.sock http://local/admin/v1/status/summary
package localserver
