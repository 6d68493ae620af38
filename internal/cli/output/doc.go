// Package output renders server replies for meshkv-cli.
//
//   - text: redis-cli style, quoted strings and typed prefixes (default)
//   - raw: bare values, one per line, for scripting
//   - json, yaml: structured encodings of the reply
package output
