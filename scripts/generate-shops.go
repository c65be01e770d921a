//go:build ignore

// Package main generates a synthetic shop fixture for load testing.
// Usage: go run scripts/generate-shops.go -shops 10000 -output testdata/shops-10k.yaml
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	numShops   = flag.Int("shops", 1000, "Number of shops to generate")
	maxProduct = flag.Int("max-products", 8, "Maximum products per shop")
	outputPath = flag.String("output", "testdata/shops.yaml", "Output file")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	adjectives = []string{"Sunny", "Golden", "Little", "Old", "Green", "Royal", "Corner", "Happy", "Blue", "Rustic"}
	trades     = []string{"Bakery", "Florist", "Books", "Toys", "Coffee", "Market", "Deli", "Pastries", "Garden", "Cheese"}
	suffixes   = []string{"", "House", "Shop", "Co", "& Sons", "Express", "Corner", "Studio"}
	products   = []string{"Baguette", "Croissant", "Roses", "Atlas", "Train set", "Espresso", "Brie", "Tulips", "Scone", "Puzzle"}
	categories = []string{"Bread", "Pastry", "Flowers", "Books", "Toys", "Coffee", "Cheese", "Garden"}
)

type category struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type product struct {
	Name       string  `yaml:"name"`
	Categories []int64 `yaml:"categories,omitempty"`
}

type shopEntry struct {
	Name        string    `yaml:"name"`
	CreatedAt   string    `yaml:"created_at"`
	InVacations bool      `yaml:"in_vacations"`
	Products    []product `yaml:"products,omitempty"`
}

type fixture struct {
	Categories []category  `yaml:"categories"`
	Shops      []shopEntry `yaml:"shops"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	f := fixture{}
	for i, name := range categories {
		f.Categories = append(f.Categories, category{ID: int64(i + 1), Name: name})
	}

	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < *numShops; i++ {
		name := fmt.Sprintf("%s %s", adjectives[rng.Intn(len(adjectives))], trades[rng.Intn(len(trades))])
		if s := suffixes[rng.Intn(len(suffixes))]; s != "" {
			name += " " + s
		}

		entry := shopEntry{
			Name:        fmt.Sprintf("%s %d", name, i+1),
			CreatedAt:   start.AddDate(0, 0, rng.Intn(8*365)).Format("2006-01-02"),
			InVacations: rng.Intn(5) == 0,
		}
		for p := rng.Intn(*maxProduct + 1); p > 0; p-- {
			entry.Products = append(entry.Products, product{
				Name:       products[rng.Intn(len(products))],
				Categories: []int64{int64(rng.Intn(len(categories)) + 1)},
			})
		}
		f.Shops = append(f.Shops, entry)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding fixture: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(*outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outputPath, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing fixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d shops in %s\n", *numShops, *outputPath)
}
