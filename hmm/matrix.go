package hmm

// dense is a row-major rows×cols probability table backed by a flat
// buffer.
type dense struct {
	rows, cols int
	cells      []float64
}

func newDense(rows, cols int) *dense {
	return &dense{
		rows:  rows,
		cols:  cols,
		cells: make([]float64, rows*cols),
	}
}

func (m *dense) at(r, c int) float64 {
	return m.cells[r*m.cols+c]
}

func (m *dense) set(r, c int, v float64) {
	m.cells[r*m.cols+c] = v
}

// normalizeRows scales every row to sum to 1. A row whose sum is zero
// is left as all zeros rather than divided by zero.
func (m *dense) normalizeRows() {
	for r := 0; r < m.rows; r++ {
		row := m.cells[r*m.cols : (r+1)*m.cols]
		var sum float64
		for _, v := range row {
			sum += v
		}
		if sum == 0 {
			continue
		}
		for c := range row {
			row[c] /= sum
		}
	}
}

func (m *dense) rowSum(r int) float64 {
	var sum float64
	for _, v := range m.cells[r*m.cols : (r+1)*m.cols] {
		sum += v
	}
	return sum
}
