package file

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Dataset is a file-backed pair of row-aligned views.
type Dataset struct {
	Name  string      `json:"name"`
	ViewA [][]float64 `json:"view_a"`
	ViewB [][]float64 `json:"view_b"`
}

// NewDataset wraps the two views for persistence.
func NewDataset(name string, a, b *mat.Dense) *Dataset {
	return &Dataset{
		Name:  name,
		ViewA: rows(a),
		ViewB: rows(b),
	}
}

// Save saves the dataset under the given directory.
func (d *Dataset) Save(filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		err := os.MkdirAll(filePath, os.ModePerm)
		if err != nil {
			return fmt.Errorf("could not make dir: %s: %w", filePath, err)
		}
	} else if !info.IsDir() {
		return fmt.Errorf("path given is not a directory: %s", filePath)
	}

	path := datasetPath(filePath, d.Name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create file '%s': %w", path, err)
	}
	defer f.Close()

	b, err := json.Marshal(*d)
	if err != nil {
		return fmt.Errorf("could not save dataset '%s': %w", d.Name, err)
	}

	_, err = f.Write(b)
	if err != nil {
		return fmt.Errorf("could not write dataset '%s' to file '%v' : %w", d.Name, f, err)
	}

	return nil
}

// Load loads the dataset from the given file.
func (d *Dataset) Load(fileName string) error {
	data, err := ioutil.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("could not read file '%s': %w", fileName, err)
	}

	err = json.Unmarshal(data, d)
	if err != nil {
		return fmt.Errorf("could not unmarshal dataset: %w", err)
	}

	return nil
}

// Views materializes the two views as matrices.
func (d *Dataset) Views() (*mat.Dense, *mat.Dense, error) {
	a, err := matrix(d.ViewA)
	if err != nil {
		return nil, nil, fmt.Errorf("view a: %w", err)
	}
	b, err := matrix(d.ViewB)
	if err != nil {
		return nil, nil, fmt.Errorf("view b: %w", err)
	}
	ra, _ := a.Dims()
	rb, _ := b.Dims()
	if ra != rb {
		return nil, nil, fmt.Errorf("views are not row-aligned: %d vs %d", ra, rb)
	}
	return a, b, nil
}

func rows(m *mat.Dense) [][]float64 {
	r, c := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

func matrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	cols := len(rows[0])
	out := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", i, len(row), cols)
		}
		for j, v := range row {
			out.Set(i, j, v)
		}
	}
	return out, nil
}

func datasetPath(filename, name string) string {
	return filepath.Join(filename, fmt.Sprintf("%s.json", name))
}
