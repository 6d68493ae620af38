package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yndnr/meshkv/internal/core/domain"
	"github.com/yndnr/meshkv/pkg/resp"
)

// ErrorReply converts an error into the wire-level error reply.
func ErrorReply(err error) resp.Reply {
	var de *domain.DomainError
	if errors.As(err, &de) {
		return resp.Error(de.Message)
	}
	return resp.Error(domain.ErrInternal.Message)
}

func arityError(name string) resp.Reply {
	return resp.Error(fmt.Sprintf("%s for '%s' command", domain.ErrWrongArity.Message, strings.ToLower(name)))
}

// parseInt parses a base-10 int64 argument.
func parseInt(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, domain.ErrMalformedArgument
	}
	return n, nil
}

func formatInt(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}
