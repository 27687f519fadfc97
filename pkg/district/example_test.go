package district_test

import (
	"context"
	"fmt"

	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/district"
)

func ExamplePartition() {
	// Partition the 4x4 demo grid into four districts with the default
	// fair-mode configuration.
	table, _ := block.DemoGrid(4)
	region, err := district.NewRegion(table.Units(), 4)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	districts, err := district.Partition(context.Background(), region, district.DefaultConfig())
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	var total int64
	for _, d := range districts {
		total += d.Pop
	}
	fmt.Println("Districts:", len(districts))
	fmt.Println("Population:", total)
	// Output:
	// Districts: 4
	// Population: 19000
}
