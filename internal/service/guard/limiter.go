package guard

import (
	"sync"
	"time"
)

// Reason explains why a message was not admitted.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonInFlight    Reason = "in_flight"
	ReasonDuplicate   Reason = "duplicate"
	ReasonRateLimited Reason = "rate_limited"
)

// Decision is the outcome of Admit.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Options tunes the limiter windows.
type Options struct {
	ProcessingTimeout time.Duration
	DuplicateWindow   time.Duration
	RateWindow        time.Duration
	RateLimit         int
}

// DefaultOptions mirrors the production defaults.
func DefaultOptions() Options {
	return Options{
		ProcessingTimeout: 10 * time.Second,
		DuplicateWindow:   5 * time.Second,
		RateWindow:        30 * time.Second,
		RateLimit:         10,
	}
}

type lastMessage struct {
	text string
	at   time.Time
}

// Limiter gates inbound messages with three checks applied in order:
// in-flight, duplicate text, per-user sliding rate window.
type Limiter struct {
	opts Options

	mu       sync.Mutex
	inFlight map[string]time.Time
	last     map[string]lastMessage
	windows  map[string][]time.Time
}

// NewLimiter builds a Limiter. Zero option values fall back to the defaults.
func NewLimiter(opts Options) *Limiter {
	def := DefaultOptions()
	if opts.ProcessingTimeout <= 0 {
		opts.ProcessingTimeout = def.ProcessingTimeout
	}
	if opts.DuplicateWindow <= 0 {
		opts.DuplicateWindow = def.DuplicateWindow
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = def.RateWindow
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = def.RateLimit
	}
	return &Limiter{
		opts:     opts,
		inFlight: make(map[string]time.Time),
		last:     make(map[string]lastMessage),
		windows:  make(map[string][]time.Time),
	}
}

// Admit decides whether the message may reach the conversation router. An
// allowed message stays marked in flight until Release is called; rejected
// messages are never left marked. text is empty for non-text messages, which
// skips the duplicate check.
func (l *Limiter) Admit(userID, messageID, text string, now time.Time) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := flightKey(userID, messageID)
	l.purgeInFlight(now)
	if messageID != "" {
		if _, busy := l.inFlight[key]; busy {
			return Decision{Reason: ReasonInFlight}
		}
		l.inFlight[key] = now
	}

	if text != "" {
		prev, seen := l.last[userID]
		l.last[userID] = lastMessage{text: text, at: now}
		if seen && prev.text == text && now.Sub(prev.at) < l.opts.DuplicateWindow {
			delete(l.inFlight, key)
			return Decision{Reason: ReasonDuplicate}
		}
	}

	window := l.prune(l.windows[userID], now)
	if len(window) >= l.opts.RateLimit {
		l.windows[userID] = window
		delete(l.inFlight, key)
		return Decision{Reason: ReasonRateLimited}
	}
	l.windows[userID] = append(window, now)

	return Decision{Allowed: true}
}

// Release clears the in-flight mark set by an allowed Admit.
func (l *Limiter) Release(userID, messageID string) {
	if messageID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.inFlight, flightKey(userID, messageID))
}

// Sweep drops expired entries from every structure.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.purgeInFlight(now)
	for user, msg := range l.last {
		if now.Sub(msg.at) >= l.opts.DuplicateWindow {
			delete(l.last, user)
		}
	}
	for user, window := range l.windows {
		if pruned := l.prune(window, now); len(pruned) == 0 {
			delete(l.windows, user)
		} else {
			l.windows[user] = pruned
		}
	}
}

// Stats reports the current number of tracked entries per structure.
func (l *Limiter) Stats() (inFlight, last, windows int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inFlight), len(l.last), len(l.windows)
}

func (l *Limiter) purgeInFlight(now time.Time) {
	for key, at := range l.inFlight {
		if now.Sub(at) >= l.opts.ProcessingTimeout {
			delete(l.inFlight, key)
		}
	}
}

func (l *Limiter) prune(window []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-l.opts.RateWindow)
	i := 0
	for i < len(window) && !window[i].After(cutoff) {
		i++
	}
	return window[i:]
}

func flightKey(userID, messageID string) string {
	return userID + "|" + messageID
}
