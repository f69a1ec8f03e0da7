// Package files provides file system operations for probereport.
//
// Discovery finds the simulation output tables matching a glob pattern
// under a root directory. Results are sorted by path so that repeated
// runs aggregate rows in the same order.
//
// Manager writes report outputs (exports, charts) below the configured
// output directory and lists what a run produced.
//
// Example usage:
//
//	found, err := files.Discover("plot_data/v3", "*plot.txt")
//	if err != nil {
//	    return err
//	}
//
//	manager := files.NewManager(config.NewPaths(cfg))
//	err = manager.WriteFile("v3/combined.csv", data)
package files
