package command

import (
	"fmt"

	"github.com/yndnr/meshkv/internal/storage/aof"
	"github.com/yndnr/meshkv/internal/storage/memory"
	"github.com/yndnr/meshkv/internal/telemetry/logger"
	"github.com/yndnr/meshkv/pkg/resp"
)

// ReplayResult summarizes a startup replay.
type ReplayResult struct {
	aof.ReplayStats

	// Applied counts records executed without an error reply.
	Applied int

	// Rejected counts records that resolved to no command, had a bad
	// arity, or produced an error reply.
	Rejected int
}

// Replay folds every record of log into store through the command table.
//
// Records run with Replaying set, so handlers neither propagate nor touch
// sessions. A record that fails is logged and skipped; only errors from
// the log itself abort the replay.
func Replay(log aof.Log, reg *Registry, store *memory.Store, l logger.Logger) (ReplayResult, error) {
	if l == nil {
		l = logger.Default()
	}
	var res ReplayResult

	stats, err := log.Replay(func(rec *aof.Record) error {
		if rec.DB < 0 || rec.DB >= store.Databases() {
			res.Rejected++
			l.Warn("aof record targets unknown database", "record", rec.String())
			return nil
		}
		cmd, ok := reg.Resolve(rec.Name)
		if !ok || !cmd.Has(FlagKeyspace) || !cmd.CheckArity(len(rec.Args)+1) {
			res.Rejected++
			l.Warn("aof record not replayable", "record", rec.String())
			return nil
		}

		ctx := &Context{
			Name:      cmd.Name,
			Args:      rec.Args,
			DB:        rec.DB,
			Replaying: true,
		}
		var reply resp.Reply
		_ = store.Exec(func(tx *memory.Tx) error {
			ctx.Tx = tx
			reply = cmd.Handler.Execute(ctx)
			return nil
		})

		if er, isErr := reply.(resp.ErrorReply); isErr {
			res.Rejected++
			l.Warn("aof record failed", "record", rec.String(), "error", string(er))
			return nil
		}
		res.Applied++
		return nil
	})
	res.ReplayStats = stats
	if err != nil {
		return res, fmt.Errorf("replay aof: %w", err)
	}

	l.Info("aof replay complete",
		"records", stats.Records,
		"applied", res.Applied,
		"rejected", res.Rejected,
		"skipped", stats.Skipped,
		"truncated_bytes", stats.TruncatedBytes,
	)
	return res, nil
}
