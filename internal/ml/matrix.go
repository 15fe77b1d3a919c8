package ml

// Matrix is stored column-major: Data[col*Rows+row].
type Matrix struct {
	Data []float64
	Rows int
	Cols int
}

func NewMatrix(rows, cols int) Matrix {
	return Matrix{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
	}
}

func (m *Matrix) Get(row, col int) float64 {
	return m.Data[col*m.Rows+row]
}

// Column returns the values of one column without copying.
func (m *Matrix) Column(col int) []float64 {
	return m.Data[col*m.Rows : (col+1)*m.Rows]
}

// RowMajor converts to float32 values ordered row by row.
func (m *Matrix) RowMajor() []float32 {
	var result = make([]float32, len(m.Data))
	for col := 0; col < m.Cols; col++ {
		for row := 0; row < m.Rows; row++ {
			result[row*m.Cols+col] = float32(m.Data[col*m.Rows+row])
		}
	}
	return result
}
