package workflowtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"assistance-workflow/internal/models"
)

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Notifier records every notice and optionally fails delivery.
type Notifier struct {
	mu      sync.Mutex
	notices []models.Notice
	Err     error
}

func (n *Notifier) Notify(_ context.Context, notice models.Notice) ([]models.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)

	rec := models.Notification{
		ApplicationID: notice.Application.ID,
		Type:          notice.Type,
		Channel:       models.ChannelEmail,
		Recipient:     notice.Application.Applicant.Email,
		Status:        models.DeliverySent,
	}
	if n.Err != nil {
		rec.Status = models.DeliveryFailed
		rec.Error = n.Err.Error()
		return []models.Notification{rec}, n.Err
	}
	return []models.Notification{rec}, nil
}

// Notices returns the notices received so far.
func (n *Notifier) Notices() []models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notice(nil), n.notices...)
}

// Signatures keeps signature images in memory.
type Signatures struct {
	mu      sync.Mutex
	files   map[string][]byte
	SaveErr error
}

// NewSignatures returns an empty store.
func NewSignatures() *Signatures {
	return &Signatures{files: make(map[string][]byte)}
}

func (s *Signatures) Save(_ context.Context, applicationID string, role models.Role, image []byte, ext string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return "", s.SaveErr
	}
	path := fmt.Sprintf("%s/%s.%s", applicationID, role, ext)
	s.files[path] = append([]byte(nil), image...)
	return path, nil
}

func (s *Signatures) Load(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("signature %s not found", path)
	}
	return data, nil
}

func (s *Signatures) Remove(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

// Len returns the number of stored images.
func (s *Signatures) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Cache is an in-memory dashboard page cache that counts invalidations.
type Cache struct {
	mu            sync.Mutex
	pages         map[string]*models.ApplicationPage
	gen           int64
	Invalidations int
	Err           error
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{pages: make(map[string]*models.ApplicationPage)}
}

func (c *Cache) key(q models.ListQuery) string {
	return fmt.Sprintf("%v|%s|%s|%d|%d", q.Statuses, q.Search, q.ServiceType, q.Page, q.PageSize)
}

func (c *Cache) GetPage(_ context.Context, q models.ListQuery) (*models.ApplicationPage, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, 0, false, c.Err
	}
	p, ok := c.pages[c.key(q)]
	if !ok {
		return nil, c.gen, false, nil
	}
	cp := *p
	cp.Items = append([]models.ApplicationSummary(nil), p.Items...)
	return &cp, c.gen, true, nil
}

// PutPage drops pages read under an older generation.
func (c *Cache) PutPage(_ context.Context, q models.ListQuery, gen int64, page *models.ApplicationPage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	if gen != c.gen {
		return nil
	}
	cp := *page
	cp.Items = append([]models.ApplicationSummary(nil), page.Items...)
	c.pages[c.key(q)] = &cp
	return nil
}

func (c *Cache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
	if c.Err != nil {
		return c.Err
	}
	c.gen++
	c.pages = make(map[string]*models.ApplicationPage)
	return nil
}

// Catalog is a fixed set of active program codes.
type Catalog map[string]bool

func (c Catalog) IsActive(code string) bool { return c[code] }
