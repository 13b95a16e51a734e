// Package view 把HTML模板编进二进制里，每个文件用 {{define "名字"}} 声明自己的视图名
package view

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates
var templateFS embed.FS

const (
	Index          = "index"
	BoardDetail    = "board/detail"
	BoardSaveForm  = "board/save-form"
	BoardUpdate    = "board/update-form"
	UserJoinForm   = "user/join-form"
	UserLoginForm  = "user/login-form"
	UserUpdateForm = "user/update-form"
	Error          = "error"
)

var funcs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}

// Load 解析全部模板，交给 gin.Engine.SetHTMLTemplate
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS,
		"templates/*.tmpl",
		"templates/board/*.tmpl",
		"templates/user/*.tmpl",
	)
}
