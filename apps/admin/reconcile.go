package main

import (
	"context"
	"fmt"

	"github.com/trezcool/sundayschool/core/enrollment"
)

// reconcile repairs drifted class enrollment counters; classID 0 means every class.
func (cli *commandLine) reconcile(classID int) error {
	ctx := context.Background()

	var results []enrollment.ReconcileResult
	if classID != 0 {
		res, err := cli.enrollSvc.Reconcile(ctx, classID)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else {
		var err error
		if results, err = cli.enrollSvc.ReconcileAll(ctx); err != nil {
			return err
		}
	}

	drifted := 0
	for _, res := range results {
		if res.Drifted() {
			drifted++
			fmt.Fprintf(cli.out, "class %d: %d -> %d\n", res.ClassID, res.Before, res.After)
		}
	}
	fmt.Fprintf(cli.out, "%d class(es) checked, %d fixed\n", len(results), drifted)
	return nil
}
