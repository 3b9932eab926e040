// Package sqltest provides a scripted infra.SQLExecutor for unit tests.
// Responses are keyed by the exact sqlinline query constant and consumed in
// FIFO order, so tests assert both the statement and the call sequence.
package sqltest

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Result is one scripted response for a query.
type Result struct {
	Rows [][]any
	Err  error
	Tag  pgconn.CommandTag
}

// Call records one executed statement.
type Call struct {
	Query string
	Args  []any
}

// Executor implements infra.SQLExecutor against scripted responses.
type Executor struct {
	mu        sync.Mutex
	responses map[string][]Result
	calls     []Call
}

// NewExecutor builds an empty scripted executor.
func NewExecutor() *Executor {
	return &Executor{responses: make(map[string][]Result)}
}

// On appends a scripted response for the given query constant.
func (e *Executor) On(query string, res Result) *Executor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.responses[query] = append(e.responses[query], res)
	return e
}

// OnRow is shorthand for a single-row response.
func (e *Executor) OnRow(query string, values ...any) *Executor {
	return e.On(query, Result{Rows: [][]any{values}})
}

// OnEmpty is shorthand for a zero-row response.
func (e *Executor) OnEmpty(query string) *Executor {
	return e.On(query, Result{})
}

// Calls returns the statements executed so far.
func (e *Executor) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallCount returns how many times the query was executed.
func (e *Executor) CallCount(query string) int {
	n := 0
	for _, c := range e.Calls() {
		if c.Query == query {
			n++
		}
	}
	return n
}

func (e *Executor) next(query string, args []any) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, Call{Query: query, Args: args})
	queue := e.responses[query]
	if len(queue) == 0 {
		return Result{}, fmt.Errorf("sqltest: no scripted response for query (marker %.30q)", query)
	}
	res := queue[0]
	e.responses[query] = queue[1:]
	return res, nil
}

// Exec implements infra.SQLExecutor.
func (e *Executor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	res, err := e.next(query, args)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	if res.Err != nil {
		return pgconn.CommandTag{}, res.Err
	}
	return res.Tag, nil
}

// QueryRow implements infra.SQLExecutor.
func (e *Executor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	res, err := e.next(query, args)
	if err != nil {
		return Row{Err: err}
	}
	if res.Err != nil {
		return Row{Err: res.Err}
	}
	if len(res.Rows) == 0 {
		return Row{Err: pgx.ErrNoRows}
	}
	return Row{Values: res.Rows[0]}
}

// Query implements infra.SQLExecutor.
func (e *Executor) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	res, err := e.next(query, args)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return &Rows{rows: res.Rows}, nil
}

// Row is a single scripted row.
type Row struct {
	Values []any
	Err    error
}

// Scan assigns the scripted values into dest.
func (r Row) Scan(dest ...any) error {
	if r.Err != nil {
		return r.Err
	}
	return assign(r.Values, dest)
}

// Rows is a scripted pgx.Rows iterator.
type Rows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *Rows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return pgx.ErrNoRows
	}
	if err := assign(r.rows[r.idx-1], dest); err != nil {
		r.err = err
		return err
	}
	return nil
}

func (r *Rows) Err() error                                   { return r.err }
func (r *Rows) Close()                                       {}
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) Values() ([]any, error) {
	return nil, fmt.Errorf("sqltest: Values not supported")
}
func (r *Rows) RawValues() [][]byte { return nil }
func (r *Rows) Conn() *pgx.Conn     { return nil }

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("sqltest: scan arity mismatch: %d values, %d targets", len(values), len(dest))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		target := reflect.ValueOf(dest[i])
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("sqltest: scan target %d is not a pointer", i)
		}
		elem := target.Elem()
		val := reflect.ValueOf(v)
		if !val.Type().ConvertibleTo(elem.Type()) {
			return fmt.Errorf("sqltest: cannot assign %T to %s at index %d", v, elem.Type(), i)
		}
		elem.Set(val.Convert(elem.Type()))
	}
	return nil
}
