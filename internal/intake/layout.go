package intake

import (
	"context"
	"html/template"
	"io"

	"github.com/gabrielmiguelok/intakewizard/pkg/core"
	"github.com/gabrielmiguelok/intakewizard/pkg/pool"
	"github.com/gabrielmiguelok/intakewizard/pkg/router"
)

// AssetPrefix is where the client script and stylesheet are served.
const AssetPrefix = "/_live/"

var layoutTemplate = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.Assets}}intake.css">
</head>
<body>
<main class="container">
{{.Content}}
</main>
<script src="{{.Assets}}intake.js" nonce="{{.Nonce}}" defer></script>
</body>
</html>
`))

// Layout returns the page shell used for the first HTTP render.
func Layout(title string) router.Layout {
	return func(ctx context.Context, w io.Writer, content core.Renderer) error {
		buf := pool.GetBuffer()
		defer pool.PutBuffer(buf)
		if err := content.Render(ctx, buf); err != nil {
			return err
		}
		return layoutTemplate.Execute(w, struct {
			Title   string
			Assets  string
			Nonce   string
			Content template.HTML
		}{
			Title:   title,
			Assets:  AssetPrefix,
			Nonce:   router.GetCSPNonce(ctx),
			Content: template.HTML(buf.String()),
		})
	}
}
