// Package render produces the canonical HTML content of warehouse documents.
package render

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/draw"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"

	"github.com/StarAlexander/inventory-storage-diploma/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	barcodeHeight = 60
	dateLayout    = "02.01.2006 15:04"
)

// Subject is everything a document about one ledger entry is rendered from.
type Subject struct {
	Template    *domain.DocumentTemplate
	Transaction *domain.Transaction
	Equipment   *domain.Equipment
	Warehouse   *domain.Warehouse
	FromZone    *domain.Zone
	ToZone      *domain.Zone
	User        *domain.User
	Repairer    *domain.User
}

type view struct {
	Title        string
	TemplateName string
	Number       int64
	Date         string
	Operation    domain.Operation
	Status       domain.EquipmentStatus
	Note         string
	Barcode      template.URL
	Equipment    *domain.Equipment
	Warehouse    *domain.Warehouse
	FromZone     *domain.Zone
	ToZone       *domain.Zone
	User         *domain.User
	Repairer     *domain.User
}

type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse document templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render returns the document content for s. The output depends only on s.
func (r *Renderer) Render(s Subject) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}

	code, err := Barcode(s.Equipment.InventoryNumber)
	if err != nil {
		return "", err
	}

	v := view{
		Title:        title(s.Template.Type),
		TemplateName: s.Template.Name,
		Number:       s.Transaction.ID,
		Date:         s.Transaction.CreatedAt.UTC().Format(dateLayout),
		Operation:    s.Transaction.Operation,
		Status:       s.Equipment.Status,
		Note:         s.Transaction.Note,
		Barcode:      code,
		Equipment:    s.Equipment,
		Warehouse:    s.Warehouse,
		FromZone:     s.FromZone,
		ToZone:       s.ToZone,
		User:         s.User,
		Repairer:     s.Repairer,
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, templateFile(s.Template.Type), v); err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return buf.String(), nil
}

func (s Subject) check() error {
	var missing string
	switch {
	case s.Template == nil:
		missing = "template"
	case s.Transaction == nil:
		missing = "transaction"
	case s.Equipment == nil:
		missing = "equipment"
	case s.Warehouse == nil:
		missing = "warehouse"
	case s.User == nil:
		missing = "user"
	case s.Transaction.FromZoneID != nil && s.FromZone == nil:
		missing = "source zone"
	case s.Transaction.ToZoneID != nil && s.ToZone == nil:
		missing = "destination zone"
	case s.Transaction.RepairerID != nil && s.Repairer == nil:
		missing = "repairer"
	default:
		return nil
	}
	return fmt.Errorf("%w: %s", domain.ErrTransactionIncomplete, missing)
}

func templateFile(t domain.DocumentType) string {
	switch t {
	case domain.DocReceipt:
		return "receipt.html"
	case domain.DocIssue:
		return "issue.html"
	case domain.DocMove:
		return "move.html"
	case domain.DocWriteOff:
		return "write_off.html"
	default:
		return "default.html"
	}
}

func title(t domain.DocumentType) string {
	switch t {
	case domain.DocReceipt:
		return "Goods Receipt Note"
	case domain.DocIssue:
		return "Issue Note"
	case domain.DocMove:
		return "Internal Transfer Act"
	case domain.DocWriteOff:
		return "Write-Off Act"
	default:
		return "Warehouse Document"
	}
}

// Barcode encodes value as a Code 128 PNG data URI.
func Barcode(value string) (template.URL, error) {
	bc, err := code128.Encode(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode barcode: %w", err)
	}
	scaled, err := barcode.Scale(bc, bc.Bounds().Dx()*2, barcodeHeight)
	if err != nil {
		return "", fmt.Errorf("failed to scale barcode: %w", err)
	}

	// Barcodes use a 16-bit gray model; PDF writers expect 8-bit samples.
	gray := image.NewGray(scaled.Bounds())
	draw.Draw(gray, gray.Bounds(), scaled, scaled.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return "", fmt.Errorf("failed to encode barcode image: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
