package executor_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolcall/executor"
)

type greetParams struct {
	Name string `json:"name"`
}

func ExampleRegistry() {
	greeter, _ := executor.NewBase("greeter", []string{"greet"}, map[string]executor.Method{
		"greet": executor.Bind(func(_ context.Context, p greetParams, _ executor.Context) (executor.Result, error) {
			return executor.OK(fmt.Sprintf("Hello, %s!", p.Name), nil), nil
		}),
	})

	reg := executor.NewRegistry()
	_ = reg.Register(greeter)

	e, ok := reg.Resolve("greeter")
	fmt.Println("found:", ok)

	res := e.Invoke(context.Background(), "greet", map[string]any{"name": "World"}, executor.Context{MessageID: "m1"})
	fmt.Println(res.Success, res.Content)

	res = e.Invoke(context.Background(), "wave", nil, executor.Context{})
	fmt.Println(res.Success, res.Error.Kind)
	// Output:
	// found: true
	// true Hello, World!
	// false ApiNotFound
}
