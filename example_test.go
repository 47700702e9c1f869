package tilesplit_test

import (
	"fmt"
	"os"

	"github.com/vearutop/tilesplit"
)

func ExampleComputeSplitRectangles() {
	left, right, err := tilesplit.ComputeSplitRectangles(1500, 1000)
	if err != nil {
		return
	}
	fmt.Println(left, right)

	// Output:
	// 750x938+0,31 750x938+750,31
}

func ExampleDefaultOutputPaths() {
	left, right := tilesplit.DefaultOutputPaths("photos/IMG_0042.jpg")
	fmt.Println(left)
	fmt.Println(right)

	// Output:
	// photos/IMG_0042-left.jpg
	// photos/IMG_0042-right.jpg
}

func ExampleRun() {
	left, right := tilesplit.DefaultOutputPaths("wallpaper.jpg")
	err := tilesplit.Run(tilesplit.SplitParams{Input: "wallpaper.jpg", LeftOutput: left, RightOutput: right},
		func(o *tilesplit.Options) {
			o.OnResult = func(res *tilesplit.Result) {
				fmt.Println(res.Mode, res.Left.Path, res.Right.Path)
			}
		})
	if err != nil {
		os.Exit(tilesplit.ExitCode(err))
	}
}
