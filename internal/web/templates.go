package web

import "html/template"

var homeTemplate = template.Must(template.New("home").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Unavailable}}<div class="alert unavailable" role="alert">The directory could not be loaded right now. The list below may be incomplete; please try again later.</div>{{end}}
{{with .Latest}}<section class="announcement latest">
<h2>Latest announcement</h2>
<p class="text">{{.Text}}</p>
<p class="date">{{.Date}}</p>
</section>{{end}}
<section class="stats">
<span class="total-members">{{.Stats.Members}}</span> members,
<span class="total-announcements">{{.Stats.Announcements}}</span> announcements,
last updated <span class="last-update">{{.Stats.LastUpdate}}</span>
</section>
<form method="get" action="/" class="search">
<input type="search" name="q" value="{{.Query}}" placeholder="Search by name or phone">
<button type="submit">Search</button>
</form>
<ul class="members">
{{range .Members}}<li class="member" data-index="{{.Index}}">
{{if .PhotoURL}}<img src="{{.PhotoURL}}" alt="{{.Name}}">{{end}}
<span class="name">{{.Name}}</span>
<span class="phone">{{.Phone}}</span>
<span class="address">{{.Address}}</span>
{{if .Email}}<span class="email">{{.Email}}</span>{{end}}
{{if .Birthday}}<span class="birthday">{{.Birthday}}</span>{{end}}
<span class="joined">{{.Joined}}</span>
</li>
{{else}}<li class="empty">No members found.</li>
{{end}}</ul>
</body>
</html>
`))
