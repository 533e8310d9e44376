// mem_task is the memory-bound leaf workload spawned by the scheduler:
// repeated random-index reads over a moderately sized slice of strings,
// exercising memory access latency rather than ALU throughput. It is
// meant to be STOPped/CONTed by the parent scheduler, never to be
// invoked directly by a user.
package main

import "math/rand"

const (
	vectorSize = 4096
	iterations = 1 << 20
)

func main() {
	v := make([]string, vectorSize)
	for i := range v {
		v[i] = "01010"
	}

	var sink string
	for n := 0; n < iterations; n++ {
		for i := 0; i < 16; i++ {
			sink = v[rand.Intn(vectorSize)]
		}
	}
	_ = sink
}
