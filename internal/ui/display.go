package ui

import (
	"maps"
	"sync"

	"github.com/nhath/dbscope/internal/db"
	"github.com/nhath/dbscope/internal/validate"
	"github.com/nhath/dbscope/internal/visibility"
)

// display is what the validation engine writes into. It tracks the shown
// result and the hidden state of each shown column, and follows the
// visibility store so toggles made anywhere are reflected.
type display struct {
	vis *visibility.Store

	mu     sync.Mutex
	status validate.Status
	result *db.QueryResult
	err    error
	hidden map[string]bool
}

func newDisplay(vis *visibility.Store) *display {
	d := &display{vis: vis, hidden: make(map[string]bool)}
	vis.Subscribe(d.onChange)
	return d
}

// Update implements validate.Sink
func (d *display) Update(status validate.Status, result *db.QueryResult, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
	d.err = err
	if result == d.result {
		return
	}
	d.result = result
	d.hidden = make(map[string]bool)
	if result == nil {
		return
	}
	for i, h := range d.vis.Observe(result.Columns) {
		d.hidden[result.Columns[i]] = h
	}
}

// ColumnStates implements validate.StateReporter
func (d *display) ColumnStates() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.hidden)
}

func (d *display) onChange(ch visibility.Change) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.hidden[ch.Column]; ok {
		d.hidden[ch.Column] = ch.Hidden
	}
}

// shown is a consistent copy of what is on display
type shown struct {
	status validate.Status
	result *db.QueryResult
	err    error
	hidden map[string]bool
}

func (d *display) current() shown {
	d.mu.Lock()
	defer d.mu.Unlock()
	return shown{status: d.status, result: d.result, err: d.err, hidden: maps.Clone(d.hidden)}
}
