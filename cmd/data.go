package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ukydev/oilchange-tracker/internal/render"
)

func listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the maintenance schedule and the warranties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, _ := cmd.Flags().GetString("kind")
			asJSON, _ := cmd.Flags().GetBool("json")
			if kind != "all" && kind != render.TabMaintenance && kind != render.TabWarranties {
				return fmt.Errorf("unknown kind %q (all, maintenance, warranties)", kind)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return printLists(cmd.OutOrStdout(), a, kind, asJSON)
			})
		},
	}
	cmd.Flags().String("kind", "all", "which records to print (all, maintenance, warranties)")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	return cmd
}

func printLists(out io.Writer, a *app, kind string, asJSON bool) error {
	today := a.maintenance.Today()
	maintenance := a.maintenance.Sorted(today)
	warranties := a.warranties.Sorted(a.warranties.Today())

	if asJSON {
		doc := map[string]any{}
		if kind != render.TabWarranties {
			doc["oilChanges"] = maintenance
		}
		if kind != render.TabMaintenance {
			doc["warranties"] = warranties
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if kind != render.TabWarranties {
		fmt.Fprintf(tw, "TROCAS DE ÓLEO (%d)\n", len(maintenance))
		fmt.Fprintln(tw, "ID\tCLIENTE\tVEÍCULO\tKM\tPRÓXIMA\tPRAZO\tAVISADO")
		for _, sm := range maintenance {
			r := sm.Record
			notified := "não"
			if r.Notified {
				notified = "sim"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s %s\t%s\n",
				r.ID, r.ClientName, r.Vehicle, render.FormatKm(r.Odometer),
				render.FormatShortDate(r.NextDueDate),
				render.MaintenanceIcon(sm.Status), render.DaysPhrase(sm.DaysRemaining), notified)
		}
		fmt.Fprintln(tw)
	}
	if kind != render.TabMaintenance {
		fmt.Fprintf(tw, "GARANTIAS (%d)\n", len(warranties))
		fmt.Fprintln(tw, "ID\tCLIENTE\tVEÍCULO\tSERVIÇO\tVALOR\tVENCIMENTO\tSTATUS")
		for _, w := range warranties {
			r := w.Record
			icon, label := render.WarrantyLabel(w.Status)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s %s\n",
				r.ID, r.ClientName, r.Vehicle, r.Service, render.FormatMoney(r.Value),
				render.FormatShortDate(r.ExpiryDate), icon, label)
		}
	}
	return tw.Flush()
}

func exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of every record",
		Long:  `Write both collections to a backup file. The default name carries the current date and time; "-" writes to standard output.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if output == "-" {
					_, err := a.backup.Export(cmd.OutOrStdout())
					return err
				}
				if output == "" {
					output = a.backup.Filename()
				}
				return exportFile(a, output, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", `destination file, "-" for standard output`)
	return cmd
}

func exportFile(a *app, path string, out io.Writer) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	doc, err := a.backup.Export(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(out, "%s: %d trocas de óleo e %d garantias\n", path, doc.TotalRecords.OilChanges, doc.TotalRecords.Warranties)
	return nil
}

func importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace every record with the contents of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				f, err := os.Open(filepath.Clean(args[0]))
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				res, err := a.backup.Import(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Message)
				return nil
			})
		},
	}
}

func infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe what a backup would contain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				info := a.backup.Info()
				fmt.Fprintf(cmd.OutOrStdout(), "Data: %s\nTrocas de Óleo: %d\nGarantias: %d\nTamanho: %s\n",
					render.FormatShortDate(a.maintenance.Today()), info.OilChanges, info.Warranties,
					render.FormatSize(info.SizeBytes))
				return nil
			})
		},
	}
}

var errNotConfirmed = errors.New("refusing to clear without --yes")

func clearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errNotConfirmed
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				a.backup.ClearAll(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), "Todos os dados foram limpos")
				return nil
			})
		},
	}
	cmd.Flags().Bool("yes", false, "confirm that every record should be deleted")
	return cmd
}
