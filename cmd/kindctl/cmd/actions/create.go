package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var validate = forms.NewValidator()

var (
	createName        string
	createDescription string
	createStatus      string
	createColor       string
	createCategory    string
	createImage       string
	createIcon        string
	createOutput      string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an action",
	Long: `Creates an action with an uploaded image (--image) or an icon value (--icon).
The image must be a JPG, PNG or SVG file of at most 5 MiB.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(createOutput); err != nil {
			return err
		}

		form := forms.ActionForm{
			Name:        strings.TrimSpace(createName),
			Description: strings.TrimSpace(createDescription),
			Status:      normalizeStatus(createStatus),
			Color:       strings.TrimSpace(createColor),
			CategoryID:  strings.TrimSpace(createCategory),
		}
		icon := strings.TrimSpace(createIcon)
		if err := validateCreate(form, createImage, icon); err != nil {
			return err
		}

		input := form.CreateInput()
		input.Icon = icon
		if createImage != "" {
			img, err := openImage(createImage)
			if err != nil {
				return err
			}
			input.File = img.Reader()
			input.FileName = img.Filename
			input.FileContentType = img.ContentType
		}

		client, err := sdkClient(cmd.Context())
		if err != nil {
			return err
		}

		action, err := client.CreateAction(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("Error al crear la acción: %s", sdk.ErrorMessage(err))
		}

		if createOutput != FormatTable {
			return encode(cmd.OutOrStdout(), createOutput, action)
		}
		pterm.Success.Println("¡Acción creada exitosamente!")
		return renderTable(cmd.OutOrStdout(), []sdk.Action{*action})
	},
}

// normalizeStatus accepts the Spanish labels shown by the admin.
func normalizeStatus(raw string) string {
	switch status := strings.ToLower(strings.TrimSpace(raw)); status {
	case "activo":
		return "active"
	case "inactivo":
		return "inactive"
	default:
		return status
	}
}

// validateCreate applies the admin create-form rules. Either an image path or
// an icon value must be given.
func validateCreate(form forms.ActionForm, image, icon string) error {
	errs := validate.Struct(form)
	if image == "" && icon == "" {
		errs = errs.With(forms.ImageField, forms.MsgImageRequired)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// openImage loads the file at path and checks it like an admin upload.
func openImage(path string) (*forms.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}
	return forms.CheckUpload(file, filepath.Base(path), info.Size())
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "Action name (at least 3 characters)")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Description (10 to 300 characters)")
	createCmd.Flags().StringVar(&createStatus, "status", "active", "active or inactive")
	createCmd.Flags().StringVar(&createColor, "color", "", "Icon color as #RRGGBB or #RGB")
	createCmd.Flags().StringVar(&createCategory, "category", "", "Category id")
	createCmd.Flags().StringVar(&createImage, "image", "", "Path to a JPG, PNG or SVG image")
	createCmd.Flags().StringVar(&createIcon, "icon", "", "Icon value to send when no image is uploaded")
	createCmd.Flags().StringVarP(&createOutput, "output", "o", FormatTable, "Output format: table, json or yaml")
	createCmd.MarkFlagsMutuallyExclusive("image", "icon")
}
