// Package rebalance inserts a run of values at an arbitrary position of a
// Redis list in one server-side step.
//
// Redis lists only grow at the ends, so an interior insert has to move the
// shorter side of the list out of the way, push the new values, and move the
// displaced elements back. Done as client round trips that sequence can
// interleave with another writer and reorder or duplicate elements. Here the
// whole rebalance runs as one Lua script, so no other client can observe or
// modify an intermediate state.
//
// Displaced elements are parked in a scratch key that is unique per call
// (see ScratchKey) and deleted on every exit path.
package rebalance

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/redislist/internal/telemetry"
	"github.com/roach88/redislist/internal/token"
)

//go:embed insert.lua
var insertSource string

var insertScript = redis.NewScript(insertSource)

// Status is the reply of the insert script.
type Status string

const (
	// StatusSuccess means the values were inserted.
	StatusSuccess Status = "SUCCESS"

	// StatusOutOfBounds means the index was outside 1..len+1 and the list
	// was left untouched.
	StatusOutOfBounds Status = "INDEX_OUT_OF_BOUNDS"
)

// Inserter runs the insert script against one client.
type Inserter struct {
	client  redis.UniversalClient
	tokens  token.Generator
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewInserter creates an Inserter. tokens supplies scratch key suffixes;
// nil selects token.UUIDv7Generator. logger and metrics may be nil.
func NewInserter(client redis.UniversalClient, tokens token.Generator, logger *slog.Logger, metrics *telemetry.Metrics) *Inserter {
	if tokens == nil {
		tokens = token.UUIDv7Generator{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inserter{client: client, tokens: tokens, logger: logger, metrics: metrics}
}

// Insert places values so that the first of them ends up at 1-based position
// index of key. Valid positions are 1..len+1 where len+1 appends.
//
// An out-of-range index yields StatusOutOfBounds with the list unchanged.
// Inserting no values is a no-op that reports StatusSuccess without a remote
// call.
func (in *Inserter) Insert(ctx context.Context, key string, index int64, values []string) (status Status, err error) {
	if len(values) == 0 {
		return StatusSuccess, nil
	}

	scratch := ScratchKey(key, in.tokens.Generate())
	ctx, span := telemetry.StartSpan(ctx, "rebalance.insert",
		telemetry.KeyAttr(key),
		telemetry.IndexAttr(index),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	args := make([]interface{}, 0, len(values)+1)
	args = append(args, strconv.FormatInt(index, 10))
	for _, v := range values {
		args = append(args, v)
	}

	reply, err := insertScript.Run(ctx, in.client, []string{key, scratch}, args...).Text()
	if err != nil {
		// The script aborted part way; make sure the parked elements do not
		// outlive the call.
		if delErr := in.client.Del(context.WithoutCancel(ctx), scratch).Err(); delErr != nil {
			in.logger.Error("failed to delete scratch key",
				"key", key,
				"scratch", scratch,
				"error", delErr,
			)
		}
		return "", fmt.Errorf("insert script on %q: %w", key, err)
	}

	status = Status(reply)
	in.metrics.ScriptStatus(string(status))
	switch status {
	case StatusSuccess, StatusOutOfBounds:
		in.logger.Debug("insert script finished",
			"key", key,
			"index", index,
			"values", len(values),
			"status", status,
		)
		return status, nil
	default:
		return "", fmt.Errorf("insert script on %q: unexpected reply %q", key, reply)
	}
}

// ScratchKey derives the scratch key for one rebalance of key.
//
// The result hashes to the same cluster slot as key: a key that already
// carries a hash tag keeps it by plain suffixing, any other key is wrapped in
// braces, which makes its whole name the tag.
func ScratchKey(key, tok string) string {
	if hasHashTag(key) {
		return key + ":scratch:" + tok
	}
	return "{" + key + "}:scratch:" + tok
}

// hasHashTag reports whether key contains a non-empty {...} section, the
// part Redis Cluster hashes instead of the whole key.
func hasHashTag(key string) bool {
	open := strings.IndexByte(key, '{')
	if open < 0 {
		return false
	}
	end := strings.IndexByte(key[open+1:], '}')
	return end > 0
}
