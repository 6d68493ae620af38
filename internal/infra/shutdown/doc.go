// Package shutdown coordinates graceful process termination.
//
// Components register named hooks; on SIGINT, SIGTERM or an explicit
// Trigger the hooks run in reverse registration order under a shared
// timeout:
//
//	h := shutdown.NewHandler(10*time.Second, shutdown.WithLogger(log))
//	h.OnShutdown("redis", srv.Shutdown)
//	h.OnShutdown("aof", func(context.Context) error { return aofLog.Close() })
//	err := h.Wait(ctx)
package shutdown
