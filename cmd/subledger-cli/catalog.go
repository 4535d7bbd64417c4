package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML shape accepted by create-creator:
//
//	name: Creator
//	plans:
//	  - name: Mini
//	    price: 1000
//	    image: https://example.com/mini.png
type catalogFile struct {
	Name  string        `yaml:"name"`
	Plans []catalogPlan `yaml:"plans"`
}

type catalogPlan struct {
	Name string `yaml:"name"`
	// Price is in lamports.
	Price uint64 `yaml:"price"`
	Image string `yaml:"image"`
}

func loadCatalog(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var catalog catalogFile
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return &catalog, nil
}

func (c *catalogFile) columns() (prices []uint64, names []string, images []string) {
	prices = make([]uint64, len(c.Plans))
	names = make([]string, len(c.Plans))
	images = make([]string, len(c.Plans))
	for i, plan := range c.Plans {
		prices[i], names[i], images[i] = plan.Price, plan.Name, plan.Image
	}
	return prices, names, images
}
