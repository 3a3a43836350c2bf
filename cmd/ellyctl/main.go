// Command ellyctl is the EducationELLy gateway command-line tool.
//
//	ellyctl -s localhost:8000 health
//	ellyctl token issue --secret "$JWT_SECRET" --id 64b0... --email a@school.org
//	ellyctl -t "$TOKEN" students --school North -o yaml
package main

import (
	"fmt"
	"os"

	"github.com/educationelly/educationelly-graphql/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
