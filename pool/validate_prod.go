//go:build !mempool_debug

package pool

func debugValidate(*Pool) {}
