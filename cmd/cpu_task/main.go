// cpu_task is the CPU-bound leaf workload spawned by the scheduler: a
// repeated 16x16 matrix multiply against randomly seeded operands. It is
// meant to be STOPped/CONTed by the parent scheduler, never to be
// invoked directly by a user.
package main

import "math/rand"

const (
	matrixSize = 16
	iterations = 1 << 20
)

func randomMatrix() [matrixSize][matrixSize]float64 {
	var m [matrixSize][matrixSize]float64
	for i := range m {
		for j := range m[i] {
			m[i][j] = rand.Float64()*2048 - 1024
		}
	}
	return m
}

func main() {
	a := randomMatrix()
	b := randomMatrix()

	for n := 0; n < iterations; n++ {
		var c [matrixSize][matrixSize]float64
		for i := 0; i < matrixSize; i++ {
			for k := 0; k < matrixSize; k++ {
				for j := 0; j < matrixSize; j++ {
					c[i][j] += a[i][k] * b[k][j]
				}
			}
		}
		// Feed one cell of c back into a so the compiler cannot prove
		// the matrix multiply is dead and elide the loop.
		a[0][0] += c[matrixSize-1][matrixSize-1] * 1e-9
	}
}
