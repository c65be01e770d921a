// Package searcher assembles the shop query engine from configuration.
//
// A Searcher owns the relational store, the optional full-text index, the
// query planner and the telemetry collector:
//
//	┌──────────────────────────────────────────────────────┐
//	│                       Searcher                       │
//	│   ┌──────────────┐          ┌────────────────────┐   │
//	│   │   Planner    │──text───▶│  BleveIndex (opt.) │   │
//	│   │              │          └────────────────────┘   │
//	│   │              │──else───▶┌────────────────────┐   │
//	│   └──────┬───────┘ fallback │    SQLiteStore     │   │
//	│          │                  └────────────────────┘   │
//	│          ▼                                           │
//	│     QueryMetrics (same database)                     │
//	└──────────────────────────────────────────────────────┘
//
// # Usage
//
//	cfg, _ := config.Load(".")
//	s, err := searcher.Open(ctx, cfg)
//	if err != nil { ... }
//	defer s.Close()
//
//	page, _ := s.Page(0, 10)
//	res, err := s.Search(ctx, shop.NewQuery(page, shop.WithText("bakery")))
//
// # Thread Safety
//
// A Searcher is safe for concurrent use.
package searcher
