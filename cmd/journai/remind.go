// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func runRemind(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.scheduler.RunNow(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "hour %02d UTC: %d sent, %d skipped, %d failed\n",
		result.Hour, result.Sent, result.Skipped, result.Failed)
	return nil
}
