// Requests HTML view.
//
// A minimal server-rendered table of all stored requests, mirroring what the
// operator sees through /export but readable in a browser. html/template
// escaping keeps user-entered text inert.
package handlers

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-repair-bot/internal/domain"
	"github.com/tbourn/go-repair-bot/internal/http/middleware"
)

var viewTmpl = template.Must(template.New("requests").Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
<meta charset="utf-8">
<title>Заявки на ремонт</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
th { background: #f0f0f0; }
tr:nth-child(even) { background: #fafafa; }
.empty { color: #777; }
</style>
</head>
<body>
<h1>Заявки на ремонт</h1>
{{if .Items}}
<table>
<tr><th>ID</th><th>Имя</th><th>Телефон</th><th>Устройство</th><th>Проблема</th><th>Время</th><th>Создана</th></tr>
{{range .Items}}
<tr>
<td>{{.ID}}</td>
<td>{{.Name}}</td>
<td>{{.Phone}}</td>
<td>{{.DeviceType}}</td>
<td>{{.Problem}}</td>
<td>{{.PreferredTime}}</td>
<td>{{if .CreatedAt.IsZero}}—{{else}}{{.CreatedAt.Format "2006-01-02 15:04"}}{{end}}</td>
</tr>
{{end}}
</table>
{{else}}
<p class="empty">Пока нет заявок.</p>
{{end}}
</body>
</html>
`))

// ViewRequests handles GET /requests on the public surface and renders the
// stored records as an HTML table.
func (h *Handlers) ViewRequests(c *gin.Context) {
	items := h.store.List()
	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := viewTmpl.Execute(c.Writer, struct {
		Items []domain.Request
	}{Items: items}); err != nil {
		// Headers are already written; all we can do is log.
		middleware.LoggerFrom(c).Error().Err(err).Msg("render requests view")
	}
}
