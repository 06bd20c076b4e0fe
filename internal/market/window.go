package market

// Window is a bounded quote history for one symbol, used as the read-only
// input to strategy evaluation.
type Window struct {
	symbol string
	max    int
	quotes []Quote
}

// NewWindow allocates a window retaining at most max quotes.
func NewWindow(symbol string, max int) *Window {
	if max <= 0 {
		max = 256
	}
	return &Window{symbol: symbol, max: max, quotes: make([]Quote, 0, max)}
}

// Symbol returns the symbol this window tracks.
func (w *Window) Symbol() string { return w.symbol }

// Append adds a quote, evicting the oldest entry once the cap is reached.
func (w *Window) Append(q Quote) {
	if len(w.quotes) == w.max {
		copy(w.quotes, w.quotes[1:])
		w.quotes = w.quotes[:w.max-1]
	}
	w.quotes = append(w.quotes, q)
}

// Len reports the number of retained quotes.
func (w *Window) Len() int { return len(w.quotes) }

// Last returns the most recent quote.
func (w *Window) Last() (Quote, bool) {
	if len(w.quotes) == 0 {
		return Quote{}, false
	}
	return w.quotes[len(w.quotes)-1], true
}

// First returns the oldest retained quote.
func (w *Window) First() (Quote, bool) {
	if len(w.quotes) == 0 {
		return Quote{}, false
	}
	return w.quotes[0], true
}

// Prices returns the retained last prices, oldest first.
func (w *Window) Prices() []float64 {
	out := make([]float64, len(w.quotes))
	for i, q := range w.quotes {
		out[i] = q.LastPrice
	}
	return out
}

// Volumes returns the retained volumes, oldest first.
func (w *Window) Volumes() []float64 {
	out := make([]float64, len(w.quotes))
	for i, q := range w.quotes {
		out[i] = q.Volume
	}
	return out
}

// Clone copies the window so callers can evaluate without holding locks.
func (w *Window) Clone() *Window {
	cp := &Window{symbol: w.symbol, max: w.max, quotes: make([]Quote, len(w.quotes), w.max)}
	copy(cp.quotes, w.quotes)
	return cp
}
