//go:build mempool_debug

package pool

// debugValidate runs Validate after every engine operation in debug builds.
func debugValidate(p *Pool) {
	if err := p.Validate(); err != nil {
		panic(err)
	}
}
