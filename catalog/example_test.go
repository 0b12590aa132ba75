package catalog_test

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolcall/catalog"
	"github.com/jonwraymond/toolcall/remote"
)

func ExampleCatalog_FunctionNames() {
	cat := catalog.New()
	_ = cat.AddRemote("github", remote.Manifest{Tools: []*mcp.Tool{
		{Name: "list_issues", Description: "List open issues"},
		{Name: "create_issue", Description: "Open a new issue"},
	}})

	for _, name := range cat.FunctionNames() {
		fmt.Println(name)
	}
	fmt.Println(cat.Manifest("github"))
	// Output:
	// github____list_issues
	// github____create_issue
	// [list_issues create_issue]
}
