package pipeline

// GShareConfig holds configuration for the GShare branch predictor.
type GShareConfig struct {
	// Rows is the number of rows in the prediction table. Default is 128.
	Rows int
	// HistoryBits is the width of the global history register in bits.
	// The table has 2^HistoryBits counters per row. Default is 3.
	HistoryBits int
	// CounterBits is the width of each saturating counter. Default is 2.
	CounterBits int
}

// DefaultGShareConfig returns a default configuration.
func DefaultGShareConfig() GShareConfig {
	return GShareConfig{
		Rows:        128,
		HistoryBits: 3,
		CounterBits: 2,
	}
}

// GShare implements a GShare-style branch predictor: a table of saturating
// counters indexed by instruction address, column-selected by a global
// history register of recent branch outcomes.
//
// Counters are initialised to the weakly-not-taken value 1 and the GHR
// starts at 0, so a fresh predictor predicts not-taken everywhere.
type GShare struct {
	// table[row][ghr] is a CounterBits-wide saturating counter.
	table [][]uint8

	ghr uint32

	rows        int
	historyMask uint32
	counterMax  uint8
	takenMin    uint8
}

// NewGShare creates a new predictor with the given configuration.
// Zero-valued fields fall back to the defaults.
func NewGShare(config GShareConfig) *GShare {
	def := DefaultGShareConfig()

	if config.Rows == 0 {
		config.Rows = def.Rows
	}
	if config.HistoryBits == 0 {
		config.HistoryBits = def.HistoryBits
	}
	if config.CounterBits == 0 {
		config.CounterBits = def.CounterBits
	}

	g := &GShare{
		rows:        config.Rows,
		historyMask: uint32(1)<<config.HistoryBits - 1,
		counterMax:  uint8(1)<<config.CounterBits - 1,
		takenMin:    uint8(1) << (config.CounterBits - 1),
	}

	g.table = make([][]uint8, config.Rows)
	for i := range g.table {
		g.table[i] = make([]uint8, 1<<config.HistoryBits)
		for j := range g.table[i] {
			g.table[i][j] = 1
		}
	}

	return g
}

// rowIndex computes the table row for a given instruction address.
func (g *GShare) rowIndex(addr uint64) int {
	// Word-align the address before hashing.
	return int((addr / 4) % uint64(g.rows))
}

// Predict returns the predicted direction for the branch at addr.
// Predict has no side effects and may be called for speculative work.
func (g *GShare) Predict(addr uint64) bool {
	counter := g.table[g.rowIndex(addr)][g.ghr]
	return counter >= g.takenMin
}

// Update trains the predictor with the actual outcome of a resolved branch
// and shifts the outcome into the global history register.
//
// The counter cell is selected with the GHR value current at update time,
// which may differ from the value used at prediction when other branches
// resolved in between.
func (g *GShare) Update(addr uint64, taken bool) {
	row := g.rowIndex(addr)
	counter := g.table[row][g.ghr]

	if taken {
		if counter < g.counterMax {
			g.table[row][g.ghr] = counter + 1
		}
	} else {
		if counter > 0 {
			g.table[row][g.ghr] = counter - 1
		}
	}

	g.ghr <<= 1
	if taken {
		g.ghr |= 1
	}
	g.ghr &= g.historyMask
}

// History returns the current global history register value.
func (g *GShare) History() uint32 {
	return g.ghr
}

// Reset restores the predictor to its initial state.
func (g *GShare) Reset() {
	for i := range g.table {
		for j := range g.table[i] {
			g.table[i][j] = 1
		}
	}
	g.ghr = 0
}
