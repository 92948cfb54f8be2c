package command

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Check whether an id is a favorite",
		Long:  "Print yes or no for the given id. The exit code is 0 either way.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Fav.Close()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			fav, err := ctx.Fav.IsFavorite(cmd.Context(), id)
			if err != nil {
				return err
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"id":       id,
					"favorite": fav,
				})
			}

			if fav {
				fmt.Fprintln(cmd.OutOrStdout(), "yes")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no")
			}
			return nil
		},
	}

	return cmd
}

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List favorites, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Fav.Close()

			recs, err := ctx.Fav.List(cmd.Context())
			if err != nil {
				return err
			}

			if ctx.JSONMode {
				items := make([]map[string]any, 0, len(recs))
				for _, rec := range recs {
					items = append(items, map[string]any{
						"id":         rec.ID,
						"name":       rec.Name,
						"image_url":  rec.ImageURL,
						"created_at": rec.CreatedAt.UnixMilli(),
					})
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(items)
			}

			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No favorites")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Favorites (%d)\n\n", len(recs))
			for _, rec := range recs {
				fmt.Fprintf(out, "  #%-8d %s  %s\n", rec.ID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.Name)
			}
			return nil
		},
	}

	return cmd
}

// NewCountCmd creates the count command.
func NewCountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count favorites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Fav.Close()

			n, err := ctx.Fav.Count(cmd.Context())
			if err != nil {
				return err
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"count": n,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}

	return cmd
}

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every favorite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return err
			}
			defer ctx.Fav.Close()

			n, err := ctx.Fav.Count(cmd.Context())
			if err != nil {
				return err
			}
			if err := ctx.Fav.Clear(cmd.Context()); err != nil {
				return err
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"cleared": true,
					"count":   n,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d favorites\n", n)
			return nil
		},
	}

	return cmd
}
