// Package bundle prices curated product bundles ("systems").
//
// Quote is a pure function of the catalog, the requested product ids and
// the discount rate. Nothing is cached and nothing is written; calling it
// twice with the same inputs returns the same quote.
package bundle
