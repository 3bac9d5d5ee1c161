package receipt

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/devrantukan/spinning-tenant-be-sub001/internal/pkg/pricing"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Raw HTML in descriptions is escaped; WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

type labels struct {
	Title      string
	Greeting   string
	Intro      string
	Discount   string
	Total      string
	Credits    string
	AllAccess  string
	FriendPass string
	Footer     string
	Subject    string
}

var labelsByLang = map[string]labels{
	"tr": {
		Title:      "Makbuz",
		Greeting:   "Merhaba",
		Intro:      "Paket satın alımınız için teşekkür ederiz. Ödeme özetiniz aşağıdadır.",
		Discount:   "İndirim",
		Total:      "Toplam",
		Credits:    "Eklenen kredi",
		AllAccess:  "All Access geçerlilik",
		FriendPass: "Arkadaş pasosu son kullanım",
		Footer:     "Bu e-posta otomatik olarak gönderilmiştir.",
		Subject:    "Makbuzunuz",
	},
	"en": {
		Title:      "Receipt",
		Greeting:   "Hi",
		Intro:      "Thank you for your purchase. Your payment summary is below.",
		Discount:   "Discount",
		Total:      "Total",
		Credits:    "Credits added",
		AllAccess:  "All Access valid until",
		FriendPass: "Friend pass expires",
		Footer:     "This e-mail was sent automatically.",
		Subject:    "Your receipt",
	},
}

type view struct {
	Lang             string
	L                labels
	Number           string
	IssuedAt         string
	OrganizationName string
	MemberName       string
	PackageName      string
	Description      template.HTML
	CouponCode       string
	HasDiscount      bool
	OriginalPrice    string
	DiscountAmount   string
	FinalPrice       string
	CreditsAdded     int
	AllAccessUntil   string
	FriendPassUntil  string
	FriendPassQR     template.URL
}

// Renderer turns an issue request into receipt HTML.
type Renderer struct {
	engine *html.Engine
}

func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("load receipt templates: %w", err)
	}
	return &Renderer{engine: engine}, nil
}

func langOf(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		return "en"
	}
	return "tr"
}

// Subject is the e-mail subject in the receipt language.
func Subject(number, orgName, locale string) string {
	l := labelsByLang[langOf(locale)]
	return fmt.Sprintf("%s - %s #%s", orgName, l.Subject, number)
}

// Render produces the receipt document. qrPNG is optional.
func (r *Renderer) Render(in IssueInput, number string, issuedAt time.Time, qrPNG []byte) (string, error) {
	lang := langOf(in.Locale)
	currency := in.Organization.Currency
	red := in.Redemption
	loc := in.Organization.Location()

	v := view{
		Lang:             lang,
		L:                labelsByLang[lang],
		Number:           number,
		IssuedAt:         issuedAt.In(loc).Format("02.01.2006 15:04"),
		OrganizationName: in.Organization.Name,
		MemberName:       in.Member.DisplayName(),
		PackageName:      pricing.GetPackageDisplayName(in.Package, lang),
		HasDiscount:      red.DiscountAmount > 0,
		OriginalPrice:    pricing.FormatPackagePrice(red.OriginalPrice, currency),
		DiscountAmount:   pricing.FormatPackagePrice(red.DiscountAmount, currency),
		FinalPrice:       pricing.FormatPackagePrice(red.FinalPrice, currency),
		CreditsAdded:     red.CreditsAdded,
	}
	if in.Coupon != nil {
		v.CouponCode = in.Coupon.Code
	}
	if in.Package.Description != "" {
		var buf bytes.Buffer
		if err := mdRenderer.Convert([]byte(in.Package.Description), &buf); err != nil {
			v.Description = template.HTML(template.HTMLEscapeString(in.Package.Description))
		} else {
			v.Description = template.HTML(buf.String())
		}
	}
	if red.AllAccessExpiresAt != nil {
		v.AllAccessUntil = red.AllAccessExpiresAt.In(loc).Format("02.01.2006")
	}
	if red.FriendPassAvailable && red.FriendPassExpiresAt != nil {
		v.FriendPassUntil = red.FriendPassExpiresAt.In(loc).Format("02.01.2006")
		if len(qrPNG) > 0 {
			v.FriendPassQR = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG))
		}
	}

	var out bytes.Buffer
	if err := r.engine.Render(&out, "receipt", v); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return out.String(), nil
}
