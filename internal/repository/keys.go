package repository

import "fmt"

// classKeys holds the names of the five Redis containers backing one ticket
// class.  All five embed the class id inside a hash tag ("{42}") so that a
// Redis Cluster assigns them to the same slot; the multi-key scripts in
// scripts.go are only legal because of that colocation.  Nothing outside this
// package may compute or touch these keys.
type classKeys struct {
	available   string // SET of ids currently purchasable
	reserved    string // SET of ids held under a live lease
	sold        string // SET of terminally sold ids
	pool        string // HASH id -> payload, written once at seeding
	reservedExp string // ZSET id -> lease expiry (epoch seconds)
}

// keysFor derives the container names for a class.  Pure function; safe to
// call on every request.
func keysFor(class int) classKeys {
	tag := fmt.Sprintf("{%d}", class)
	return classKeys{
		available:   fmt.Sprintf("ticket:%s:available", tag),
		reserved:    fmt.Sprintf("ticket:%s:reserved", tag),
		sold:        fmt.Sprintf("ticket:%s:sold", tag),
		pool:        fmt.Sprintf("ticket:%s:pool", tag),
		reservedExp: fmt.Sprintf("ticket:%s:reserved:exp", tag),
	}
}
