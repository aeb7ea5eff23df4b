package domain

import (
	"net/url"
	"strings"
)

// Claves de parámetro del dialecto crud-request más los extras del dashboard.
const (
	ParamSort      = "sort"
	ParamLimit     = "limit"
	ParamPage      = "page"
	ParamFields    = "fields"
	ParamFilter    = "filter"
	ParamSearch    = "s"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamLogLevel  = "log_level"
	ParamUserName  = "user_name"
	ParamWorkspace = "workstream"
	ParamRoleID    = "role_id"
)

// Param es un par clave/valor del descriptor.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RequestDescriptor es la forma serializada de una ListQuery: una ruta y una lista
// ordenada de parámetros. Se reconstruye siempre desde ListQuery, nunca se muta.
type RequestDescriptor struct {
	TableID string  `json:"table_id"`
	Path    string  `json:"path"`
	Params  []Param `json:"params"`
}

// Get devuelve el primer valor de la clave.
func (d RequestDescriptor) Get(key string) (string, bool) {
	for _, p := range d.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Has indica si la clave aparece, o alguna indexada "key[i]".
func (d RequestDescriptor) Has(key string) bool {
	prefix := key + "["
	for _, p := range d.Params {
		if p.Key == key || strings.HasPrefix(p.Key, prefix) {
			return true
		}
	}
	return false
}

// Values convierte a url.Values (pierde el orden; usar Encode para la clave canónica).
func (d RequestDescriptor) Values() url.Values {
	v := url.Values{}
	for _, p := range d.Params {
		v.Add(p.Key, p.Value)
	}
	return v
}

// Encode produce el query string respetando el orden de Params.
func (d RequestDescriptor) Encode() string {
	var b strings.Builder
	for i, p := range d.Params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// QueryKey es la serialización canónica usada como clave de caché.
func (d RequestDescriptor) QueryKey() string {
	return d.Path + "?" + d.Encode()
}
