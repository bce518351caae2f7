package docforge_test

import (
	"fmt"

	"github.com/lvillar/docforge"
)

func ExampleBuildFromFormData() {
	fields := []docforge.FormField{
		{ID: "clientName", Label: "Client Name", Kind: docforge.KindText},
		{ID: "description", Label: "Service Description", Kind: docforge.KindTextarea},
	}
	values := []docforge.FormValue{
		{ID: "clientName", Value: "Acme Corp"},
		{ID: "description", Value: "Quarterly consulting"},
	}

	for _, c := range docforge.BuildFromFormData(values, fields) {
		fmt.Printf("%d %s %s: %s\n", c.Order, c.Type(), c.ID, c)
	}
	// Output:
	// 0 heading clientName: Acme Corp
	// 1 text description: Quarterly consulting
}

func ExampleList_Reorder() {
	list := docforge.List{
		{ID: "a", Order: 0, Content: docforge.Heading("Title")},
		{ID: "b", Order: 1, Content: docforge.Text("Body")},
		{ID: "c", Order: 2, Content: docforge.Text("Closing")},
	}

	moved, err := list.Reorder("c", "a")
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, c := range moved {
		fmt.Println(c.Order, c.ID)
	}
	// Output:
	// 0 c
	// 1 a
	// 2 b
}

func ExampleParseColor() {
	c, err := docforge.ParseColor("#4f46e5")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(c.R, c.G, c.B)
	// Output:
	// 79 70 229
}
