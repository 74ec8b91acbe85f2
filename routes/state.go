/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"encoding/gob"
	"hash/fnv"
	"sync"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"github.com/humaidq/medtimeline/uistate"
)

const stateSessionKey = "workspace_state"

func init() {
	gob.Register(uistate.State{})
}

// stateLocks serializes commits of one browser session. Sessions share a
// fixed set of stripes.
var stateLocks [64]sync.Mutex

func stateLock(sid string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sid))

	return &stateLocks[h.Sum32()%uint32(len(stateLocks))]
}

// loadState returns a copy of the page state kept in the session.
func loadState(s session.Session) *uistate.State {
	st, ok := s.Get(stateSessionKey).(uistate.State)
	if !ok {
		return &uistate.State{}
	}
	return &st
}

func saveState(s session.Session, st *uistate.State) {
	s.Set(stateSessionKey, *st)
}

// commitState writes the regions an action changed, relative to base, onto
// the state stored now. Requests of the same session that finished in the
// meantime keep their own changes.
func commitState(s session.Session, base, changed *uistate.State) {
	mu := stateLock(s.ID())
	mu.Lock()
	defer mu.Unlock()

	current := loadState(s)
	current.Apply(base, changed)
	saveState(s, current)
}

// actionContext is the context handed to backend calls. Dispatched calls
// run to completion even when the browser abandons the request.
func actionContext(c flamego.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}
