package geo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
)

const catalogFetchTimeout = 15 * time.Second

type cityLoad struct {
	state  string
	ready  chan struct{}
	cities []models.City
	err    error
}

func (l *cityLoad) failed() bool {
	select {
	case <-l.ready:
		return l.err != nil
	default:
		return false
	}
}

// CityCatalog is the city list of the selected state. Select starts the
// fetch; Await blocks until the list of the state selected at call time is
// ready.
type CityCatalog struct {
	ref     ReferenceData
	country string

	mu      sync.Mutex
	current *cityLoad
}

func NewCityCatalog(ref ReferenceData, country string) *CityCatalog {
	return &CityCatalog{ref: ref, country: country}
}

// Select makes stateCode the selected state. Selecting another state
// drops the loaded list; selecting the same one keeps it unless its fetch
// failed, in which case the list is fetched again.
func (c *CityCatalog) Select(stateCode string) {
	stateCode = strings.ToUpper(strings.TrimSpace(stateCode))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.state == stateCode && !c.current.failed() {
		return
	}
	if stateCode == "" {
		c.current = nil
		return
	}

	load := &cityLoad{state: stateCode, ready: make(chan struct{})}
	c.current = load

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), catalogFetchTimeout)
		defer cancel()
		load.cities, load.err = c.ref.Cities(ctx, c.country, stateCode)
		close(load.ready)
	}()
}

// Await returns the city list of the selected state. With no selected
// state it returns nil.
func (c *CityCatalog) Await(ctx context.Context) ([]models.City, error) {
	c.mu.Lock()
	load := c.current
	c.mu.Unlock()

	if load == nil {
		return nil, nil
	}

	select {
	case <-load.ready:
		return load.cities, load.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate forgets the selection and its list.
func (c *CityCatalog) Invalidate() {
	c.Select("")
}
