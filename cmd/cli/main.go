// Command rulezilla parses, evaluates and combines rules from the command line.
//
// Usage:
//
//	# Show the tree of a rule
//	rulezilla parse "age > 18 AND dept = 'Sales'"
//
//	# Evaluate a rule against a JSON record
//	rulezilla evaluate "age > 18" --data '{"age": 20}'
//
//	# Combine rules with OR
//	rulezilla combine "age > 18" "score >= 90"
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
