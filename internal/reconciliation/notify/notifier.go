package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strconv"
	"sync"
	"time"

	locations "storeops-cloud/internal/locations/domain"
	reconapp "storeops-cloud/internal/reconciliation/application"
)

// LocationReader loads location metadata.
type LocationReader interface {
	Get(ctx context.Context, id string) (*locations.Location, error)
}

// Clock provides time for cooldown bookkeeping.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders flagged-count alerts and delivers them via a channel.
// Repeated counts against the same book are rate limited so a store that
// miscounts every shift does not flood the manager channel.
type Notifier struct {
	locations    LocationReader
	channel      Channel
	template     *Template
	clock        Clock
	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithCooldown sets a minimum interval between alerts for the same book and event.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical alerts within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// NewNotifier constructs a count alert notifier.
func NewNotifier(locations LocationReader, channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("count notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		locations: locations,
		channel:   channel,
		template:  template,
		clock:     systemClock{},
		sent:      make(map[string]sendRecord),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements reconapp.AlertNotifier.
func (n *Notifier) Notify(ctx context.Context, alert reconapp.CountAlert) {
	if n == nil || n.channel == nil {
		return
	}
	eventType := eventTypeFor(alert)
	data := n.buildTemplateData(ctx, eventType, alert)
	content, err := n.template.Render(data)
	if err != nil {
		return
	}
	if !n.shouldSend(alert.Count.BookID, eventType, content) {
		return
	}
	if err := n.channel.Send(ctx, content); err != nil {
		return
	}
	n.markSent(alert.Count.BookID, eventType, content)
}

func (n *Notifier) buildTemplateData(ctx context.Context, eventType string, alert reconapp.CountAlert) TemplateData {
	count := alert.Count
	locationName := count.LocationID
	if n.locations != nil {
		loc, err := n.locations.Get(ctx, count.LocationID)
		if err == nil && loc != nil && loc.Name != "" {
			locationName = loc.Name
		}
	}
	return TemplateData{
		Location:          locationName,
		LocationID:        count.LocationID,
		BookNumber:        alert.BookNumber,
		BookID:            count.BookID,
		Game:              alert.GameName,
		ExpectedRemaining: strconv.Itoa(count.ExpectedRemaining),
		PhysicalRemaining: strconv.Itoa(count.PhysicalRemaining),
		Variance:          strconv.Itoa(count.Variance),
		VarianceAmount:    count.VarianceAmount.StringFixed(2),
		CountDate:         count.Date.UTC().Format("2006-01-02"),
		LoggedBy:          count.LoggedBy,
		ReasonCode:        count.ReasonCode,
		Suggestion:        suggestionFor(alert),
		Event:             eventType,
		EventLabel:        eventLabel(eventType),
	}
}

func eventTypeFor(alert reconapp.CountAlert) string {
	if alert.Regressive {
		return "regressive"
	}
	if alert.Count.Variance > 0 {
		return "overage"
	}
	return "flagged"
}

func eventLabel(event string) string {
	switch event {
	case "regressive":
		return "Regression"
	case "overage":
		return "Overage"
	case "flagged":
		return "Flagged"
	default:
		return event
	}
}

func suggestionFor(alert reconapp.CountAlert) string {
	if alert.Regressive {
		return "Recount the book; more tickets were counted than the register has sold."
	}
	if alert.Count.Variance > 0 {
		return "Review the reason code and confirm returned or credited tickets."
	}
	return "Review the count trail and verify against register totals."
}

func (n *Notifier) shouldSend(bookID, eventType, content string) bool {
	if n == nil {
		return false
	}
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	key := alertKey(bookID, eventType)
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[key]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(bookID, eventType, content string) {
	if n == nil {
		return
	}
	key := alertKey(bookID, eventType)
	n.mu.Lock()
	n.sent[key] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func alertKey(bookID, eventType string) string {
	return bookID + "|" + eventType
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
