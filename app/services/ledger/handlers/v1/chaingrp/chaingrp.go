// Package chaingrp maintains the group of handlers for chain reads and
// the websocket event feed.
package chaingrp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dinarlabs/ledger/business/core/chain"
	"github.com/dinarlabs/ledger/business/core/ledger"
	"github.com/dinarlabs/ledger/business/web/errs"
	v1 "github.com/dinarlabs/ledger/business/web/v1"
	"github.com/dinarlabs/ledger/foundation/events"
	"github.com/dinarlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of chain endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Core
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg.String())); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Info returns the chain's monetary state and the current tip.
func (h Handlers) Info(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	info, err := h.Ledger.Info(ctx)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppInfo(info), http.StatusOK)
}

// Blocks returns a page of blocks, newest first.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	page := web.QueryInt(r, "page", 1)
	rows := web.QueryInt(r, "rows", 20)

	blocks, err := h.Ledger.Blocks(ctx, page, rows)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppBlocks(blocks), http.StatusOK)
}

// BlockByRef returns one block with its transactions. A 64 character hex
// reference is a block hash; anything else must be a decimal height.
func (h Handlers) BlockByRef(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	ref := web.Param(r, "id")

	blk, err := h.Ledger.BlockByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return errs.NewKinded(errs.NotFound, err)
		}
		return err
	}

	txs, err := h.Ledger.BlockTxs(ctx, blk.Index)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, toAppBlockDetail(blk, txs), http.StatusOK)
}

// Validate re-derives every block hash, link and merkle root and reports
// any mismatch found.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	report, err := h.Ledger.Validate(ctx)
	if err != nil {
		return err
	}

	return v1.Respond(ctx, w, report, http.StatusOK)
}
