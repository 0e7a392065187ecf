package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
)

const (
	methodCallTool = "tools/call"
	// LocalKey identifies sessions without an id, such as stdio.
	LocalKey = "local"
)

type recorder interface {
	RecordRateLimited(ctx context.Context, tool string)
}

// KeyFunc picks the caller a request is counted against.
type KeyFunc func(req mcp.Request) string

// FixedKey counts every request against key. HTTP servers are created per
// session with the client address as key, so a client cannot reset its
// budget by opening a new session.
func FixedKey(key string) KeyFunc {
	return func(mcp.Request) string { return key }
}

// ClientIP returns the host part of r.RemoteAddr, which chi's RealIP
// middleware has already replaced with the forwarded address if present.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return LocalKey
	}
	return host
}

// Middleware rejects tools/call requests once the caller exceeded the
// limiter's window. Other methods pass through.
func Middleware(limiter *SlidingWindow, key KeyFunc, metrics recorder, logger *slog.Logger) mcp.Middleware {
	if key == nil {
		key = SessionKey
	}

	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodCallTool {
				return next(ctx, method, req)
			}

			caller := key(req)
			ok, err := limiter.Allow(caller)
			if err != nil {
				logger.ErrorContext(ctx, "rate limiter failed", logging.Err(err))
				return nil, fmt.Errorf("limiter.Allow failed: %w", err)
			}
			if ok {
				return next(ctx, method, req)
			}

			tool := toolName(req)
			metrics.RecordRateLimited(ctx, tool)
			logger.WarnContext(ctx, "tool call rate limited",
				slog.String(logging.KeyTool, tool),
				slog.String("caller", caller),
			)

			return nil, fmt.Errorf("%w: %d calls per %s", ErrRateLimited, limiter.Limit(), limiter.Window())
		}
	}
}

// SessionKey counts requests per MCP session id, or against LocalKey when
// the session has none.
func SessionKey(req mcp.Request) string {
	if req == nil {
		return LocalKey
	}
	ss, ok := req.GetSession().(*mcp.ServerSession)
	if !ok || ss == nil || ss.ID() == "" {
		return LocalKey
	}
	return ss.ID()
}

func toolName(req mcp.Request) string {
	if r, ok := req.(*mcp.CallToolRequest); ok && r.Params != nil {
		return r.Params.Name
	}
	return ""
}
