package command

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goforj/favorites/favcore"
)

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <id> <name>",
		Short: "Add a favorite",
		Long:  "Add a record to the favorites. Adding an id that is already a favorite replaces its name and image and keeps the original timestamp.",
		Args:  cobra.ExactArgs(2),
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
			imageURL, _ := cmd.Flags().GetString("image")

			rec, err := ctx.Fav.Add(cmd.Context(), favcore.Record{ID: id, Name: args[1], ImageURL: imageURL})
			if err != nil {
				return err
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"added":      true,
					"id":         rec.ID,
					"name":       rec.Name,
					"image_url":  rec.ImageURL,
					"created_at": rec.CreatedAt.UnixMilli(),
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s\n", rec.ID, rec.Name)
			return nil
		},
	}

	cmd.Flags().String("image", "", "image URL for the record")

	return cmd
}

// NewRmCmd creates the rm command.
func NewRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a favorite",
		Long:  "Remove a record from the favorites. Removing an id that is not a favorite is a no-op.",
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
			if !fav {
				if ctx.JSONMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"not_favorite": true,
						"id":           id,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Not a favorite: #%d\n", id)
				return nil
			}

			if err := ctx.Fav.Remove(cmd.Context(), id); err != nil {
				return err
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"removed": true,
					"id":      id,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed #%d\n", id)
			return nil
		},
	}

	return cmd
}

// NewToggleCmd creates the toggle command.
func NewToggleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle <id> <name>",
		Short: "Toggle a favorite",
		Long:  "Add the record if the id is not a favorite, remove it if it is.",
		Args:  cobra.ExactArgs(2),
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
			imageURL, _ := cmd.Flags().GetString("image")

			on, err := ctx.Fav.Toggle(cmd.Context(), favcore.Record{ID: id, Name: args[1], ImageURL: imageURL})
			if err != nil {
				return err
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"favorite": on,
					"id":       id,
				})
			}

			if on {
				fmt.Fprintf(cmd.OutOrStdout(), "Now a favorite: #%d %s\n", id, args[1])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No longer a favorite: #%d\n", id)
			}
			return nil
		},
	}

	cmd.Flags().String("image", "", "image URL for the record")

	return cmd
}

// parseID parses a record id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: expected an integer", arg)
	}
	return id, nil
}
