package circuit

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/zkpreimage/poseidon-preimage/poseidon"
)

// ColumnKind is the role of a column in the constraint system.
type ColumnKind uint8

const (
	Advice ColumnKind = iota
	Fixed
	Instance
)

func (k ColumnKind) String() string {
	switch k {
	case Advice:
		return "advice"
	case Fixed:
		return "fixed"
	case Instance:
		return "instance"
	}
	return fmt.Sprintf("ColumnKind(%d)", uint8(k))
}

type Column struct {
	Kind  ColumnKind
	Index int
}

func (c Column) String() string { return fmt.Sprintf("%s[%d]", c.Kind, c.Index) }

// Cell addresses one row of one column.
type Cell struct {
	Column Column
	Row    int
}

// ConstraintBuilder allocates columns and records which of them take part in
// equality constraints.
type ConstraintBuilder struct {
	nbColumns [3]int
	equality  []Column
	constants []Column
}

func NewConstraintBuilder() *ConstraintBuilder {
	return &ConstraintBuilder{}
}

func (b *ConstraintBuilder) column(kind ColumnKind) Column {
	c := Column{Kind: kind, Index: b.nbColumns[kind]}
	b.nbColumns[kind]++
	return c
}

func (b *ConstraintBuilder) AdviceColumn() Column   { return b.column(Advice) }
func (b *ConstraintBuilder) FixedColumn() Column    { return b.column(Fixed) }
func (b *ConstraintBuilder) InstanceColumn() Column { return b.column(Instance) }

func (b *ConstraintBuilder) NbColumns(kind ColumnKind) int { return b.nbColumns[kind] }

func (b *ConstraintBuilder) EnableEquality(c Column) {
	if !b.IsEqualityEnabled(c) {
		b.equality = append(b.equality, c)
	}
}

// EnableConstant lets constants be copied into c; it implies equality.
func (b *ConstraintBuilder) EnableConstant(c Column) {
	for _, k := range b.constants {
		if k == c {
			return
		}
	}
	b.constants = append(b.constants, c)
	b.EnableEquality(c)
}

func (b *ConstraintBuilder) IsEqualityEnabled(c Column) bool {
	for _, e := range b.equality {
		if e == c {
			return true
		}
	}
	return false
}

func (b *ConstraintBuilder) ConstantColumns() []Column {
	return append([]Column(nil), b.constants...)
}

// PermutationConfig describes the columns handed to the permutation chip. gnark places
// the gates itself, so the columns only account for the layout; Variant selects the chip
// and State fixes its width.
type PermutationConfig struct {
	State       []Column
	PartialSbox Column
	RCA         []Column
	RCB         []Column
	Variant     poseidon.Variant
}

func configurePermutation(b *ConstraintBuilder, v poseidon.Variant, state []Column, partialSbox Column, rcA, rcB []Column) PermutationConfig {
	for _, c := range state {
		b.EnableEquality(c)
	}
	return PermutationConfig{
		State:       state,
		PartialSbox: partialSbox,
		RCA:         rcA,
		RCB:         rcB,
		Variant:     v,
	}
}

// Config is the column layout of a HashCircuit. Synthesize reads Length, Layout and
// Permutation; the remaining fields are descriptive.
type Config struct {
	Variant     poseidon.Variant
	Length      int
	Input       []Column
	Output      Column
	Permutation PermutationConfig
	Layout      *Layout
}

// Configure allocates the columns of a circuit hashing length words with v.
func Configure(b *ConstraintBuilder, v poseidon.Variant, length int) (Config, error) {
	if err := v.CheckLength(length); err != nil {
		return Config{}, err
	}
	width := v.Width()

	state := make([]Column, width)
	for i := range state {
		state[i] = b.AdviceColumn()
	}
	partialSbox := b.AdviceColumn()

	rcA := make([]Column, width)
	for i := range rcA {
		rcA[i] = b.FixedColumn()
	}
	rcB := make([]Column, width)
	for i := range rcB {
		rcB[i] = b.FixedColumn()
	}
	b.EnableConstant(rcB[0])

	output := b.InstanceColumn()
	b.EnableEquality(output)

	cfg := Config{
		Variant:     v,
		Length:      length,
		Input:       state[:v.Rate()],
		Output:      output,
		Permutation: configurePermutation(b, v, state, partialSbox, rcA, rcB),
		Layout:      newLayout(),
	}

	for i := 0; i < length; i++ {
		if err := cfg.Layout.bind(MessageSignal(i), Cell{Column: cfg.Input[i], Row: 0}); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Layout.bind(OutputSignal, Cell{Column: output, Row: 0}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// OutputSignal names the public digest.
const OutputSignal = "output"

// MessageSignal names the i-th message word.
func MessageSignal(i int) string { return fmt.Sprintf("message_%d", i) }

// Layout maps logical signal names to cells, in assignment order.
type Layout struct {
	order []string
	cells map[string]Cell
}

func newLayout() *Layout {
	return &Layout{cells: make(map[string]Cell)}
}

func (l *Layout) bind(signal string, cell Cell) error {
	if _, ok := l.cells[signal]; ok {
		return errors.Errorf("signal %q bound twice", signal)
	}
	for _, s := range l.order {
		if l.cells[s] == cell {
			return errors.Errorf("cell %s row %d already holds %q", cell.Column, cell.Row, s)
		}
	}
	l.order = append(l.order, signal)
	l.cells[signal] = cell
	return nil
}

func (l *Layout) Cell(signal string) (Cell, bool) {
	c, ok := l.cells[signal]
	return c, ok
}

// Signals returns the signal names in assignment order.
func (l *Layout) Signals() []string {
	return append([]string(nil), l.order...)
}

// PublicCells returns the cells living in instance columns.
func (l *Layout) PublicCells() []Cell {
	var res []Cell
	for _, s := range l.order {
		if c := l.cells[s]; c.Column.Kind == Instance {
			res = append(res, c)
		}
	}
	return res
}
