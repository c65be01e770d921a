// Package configs provides embedded data files for shopsearch.
//
// Files are embedded at build time so they ship with every binary:
//   - sample-shops.yaml: a small catalogue of shops, products and
//     categories, loaded by `shopsearch seed --sample`.
//
// To modify them, edit the .yaml files in this directory and rebuild.
package configs

import _ "embed"

// SampleShops is a fixture of demo shops in the seed format.
//
//go:embed sample-shops.yaml
var SampleShops []byte
