package domain

import "sort"

// Tipos de evento de mutación que afectan a los listados.
const (
	UserCreated       = "user.created"
	UserUpdated       = "user.updated"
	UserStatusUpdated = "user.status_updated"
	RoleCreated       = "role.created"
	RoleUpdated       = "role.updated"
	RoleDeleted       = "role.deleted"
	UploadCreated     = "upload.created"
	UploadCompleted   = "upload.completed"
	UploadFailed      = "upload.failed"
	FileProcessed     = "file.processed"
	ConfigUpdated     = "config.updated"
	ActivityRecorded  = "activity.recorded"
	LogRecorded       = "log.recorded"
)

// MutationTopic es el topic por defecto donde se publican las mutaciones.
const MutationTopic = "dashboard-mutations"

// NewInvalidationRegistry devuelve, por tipo de evento, los tags que invalida.
// Toda mutación de usuarios o roles deja además rastro en el registro de actividad.
func NewInvalidationRegistry() map[string][]string {
	return map[string][]string{
		UserCreated:       {TagUsers, TagActivityLogs},
		UserUpdated:       {TagUsers, TagActivityLogs},
		UserStatusUpdated: {TagUsers, TagActivityLogs},
		RoleCreated:       {TagRoles, TagUsers, TagActivityLogs},
		RoleUpdated:       {TagRoles, TagUsers, TagActivityLogs},
		RoleDeleted:       {TagRoles, TagUsers, TagActivityLogs},
		UploadCreated:     {TagUpload, TagUploads},
		UploadCompleted:   {TagUpload, TagUploads, TagDashboard},
		UploadFailed:      {TagUpload, TagUploads, TagLogs},
		FileProcessed:     {TagDashboard},
		ConfigUpdated:     {TagConfig},
		ActivityRecorded:  {TagActivityLogs},
		LogRecorded:       {TagLogs},
	}
}

// EventTypes lista los tipos conocidos, ordenados.
func EventTypes() []string {
	reg := NewInvalidationRegistry()
	out := make([]string, 0, len(reg))
	for t := range reg {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MutationEvent es el payload mínimo de una mutación: qué recurso cambió.
type MutationEvent struct {
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id,omitempty"`
}

func (e MutationEvent) PartitionKey() string {
	return e.Resource + ":" + e.ResourceID
}
