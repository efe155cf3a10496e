// Command poolbench runs synthetic workloads against the mempool allocator.
package main

func main() {
	execute()
}
