package attendance

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// Cache owns the in-memory copy of all attendance records.
//
// Mutations are applied to the repository first and only the confirmed result
// is applied locally, so a failed call leaves the cache untouched. Store calls
// are serialized by writes, so a refresh never overwrites a mutation confirmed
// while it was listing, and concurrent marks land in the order the store saw them.
type Cache struct {
	repository Repository

	writes sync.Mutex

	guard   sync.RWMutex
	records []Record
	loading int

	markedCallbacks []func(context.Context, Record)
}

func NewCache(repository Repository) *Cache {
	return &Cache{
		repository: repository,
	}
}

// OnMarked registers a callback called after a record was marked.
func (c *Cache) OnMarked(cb func(context.Context, Record)) {
	c.markedCallbacks = append(c.markedCallbacks, cb)
}

// Refresh replaces the cached records with the full list from the repository.
func (c *Cache) Refresh(ctx context.Context) error {
	c.guard.Lock()
	c.loading++
	c.guard.Unlock()

	c.writes.Lock()
	defer c.writes.Unlock()

	records, err := c.repository.ListAll(ctx)

	c.guard.Lock()
	defer c.guard.Unlock()
	c.loading--
	if err != nil {
		return fmt.Errorf("list all: %w", err)
	}
	c.records = slices.Clone(records)
	sortRecords(c.records)
	return nil
}

// Loading reports whether a refresh is in flight.
func (c *Cache) Loading() bool {
	c.guard.RLock()
	defer c.guard.RUnlock()
	return c.loading > 0
}

// Records returns a copy of all records, newest date first.
func (c *Cache) Records() []Record {
	c.guard.RLock()
	defer c.guard.RUnlock()
	return slices.Clone(c.records)
}

func (c *Cache) SubjectRecords(subject string) []Record {
	c.guard.RLock()
	defer c.guard.RUnlock()
	out := []Record{}
	for _, record := range c.records {
		if record.Subject == subject {
			out = append(out, record)
		}
	}
	return out
}

func (c *Cache) StatusFor(date Date, subject string) (Status, bool) {
	c.guard.RLock()
	defer c.guard.RUnlock()
	if i := c.indexOf(date, subject); i >= 0 {
		return c.records[i].Status, true
	}
	return "", false
}

func (c *Cache) Mark(ctx context.Context, date Date, subject string, status Status) (Record, error) {
	record, err := c.mark(ctx, date, subject, status)
	if err != nil {
		return Record{}, err
	}

	for _, cb := range c.markedCallbacks {
		cb(ctx, record)
	}
	return record, nil
}

func (c *Cache) mark(ctx context.Context, date Date, subject string, status Status) (Record, error) {
	c.writes.Lock()
	defer c.writes.Unlock()

	record, err := c.repository.Upsert(ctx, date, subject, status)
	if err != nil {
		return Record{}, fmt.Errorf("upsert: %w", err)
	}

	c.guard.Lock()
	defer c.guard.Unlock()
	if i := c.indexOf(date, subject); i >= 0 {
		c.records[i] = record
	} else {
		c.records = append(c.records, record)
		sortRecords(c.records)
	}
	return record, nil
}

func (c *Cache) Delete(ctx context.Context, date Date, subject string) error {
	c.writes.Lock()
	defer c.writes.Unlock()

	if err := c.repository.DeleteOne(ctx, date, subject); err != nil {
		return fmt.Errorf("delete one: %w", err)
	}
	c.guard.Lock()
	defer c.guard.Unlock()
	c.records = slices.DeleteFunc(c.records, func(r Record) bool {
		return r.Date == date && r.Subject == subject
	})
	return nil
}

func (c *Cache) DeleteDate(ctx context.Context, date Date) error {
	c.writes.Lock()
	defer c.writes.Unlock()

	if err := c.repository.DeleteAllForDate(ctx, date); err != nil {
		return fmt.Errorf("delete all for date: %w", err)
	}
	c.guard.Lock()
	defer c.guard.Unlock()
	c.records = slices.DeleteFunc(c.records, func(r Record) bool {
		return r.Date == date
	})
	return nil
}

func (c *Cache) indexOf(date Date, subject string) int {
	return slices.IndexFunc(c.records, func(r Record) bool {
		return r.Date == date && r.Subject == subject
	})
}

func sortRecords(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Subject, b.Subject)
	})
}
