// Package catalog provides the read-only product catalog consumed by the cart.
//
// The catalog is an external collaborator: the cart only ever asks it for a
// single record by id (Catalog.Product). Records are immutable once loaded;
// a price edit is modelled by swapping in a new catalog (Memory.With or
// Live.Swap), never by mutating a Product in place.
//
// # File Format
//
// Catalog files are YAML:
//
//	products:
//	  - id: omega-3
//	    name: Omega 3 Fish Oil
//	    price: 24.90
//	    compare_at_price: 29.90
//	    stock: 40
//	    images: [omega-3/front.webp]
//	    categories: [heart]
//
// Files are decoded strictly (unknown fields are rejected) and then validated
// against the embedded CUE schema in schema.cue. Prices are exact decimals
// with at most two fraction digits.
//
// # Normalization
//
// Product ids and names are NFC-normalized on load, and lookups normalize the
// requested id the same way, so visually identical ids always match.
package catalog
