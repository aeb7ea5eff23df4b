package domain

// ---------- Filas de cada listado ----------

// BatchStatus es el estado de un lote de carga.
type BatchStatus string

const (
	StatusInProgress BatchStatus = "In progress"
	StatusCompleted  BatchStatus = "Completed"
	StatusFailed     BatchStatus = "Failed"
)

type FileStats struct {
	TotalRows   int `json:"total_rows"`
	ValidRows   int `json:"valid_rows"`
	InvalidRows int `json:"invalid_rows"`
}

// FileInfo es una fila de la tabla fileList.
type FileInfo struct {
	ID         int        `json:"id"`
	S3Key      string     `json:"s3key"`
	FileURL    string     `json:"file_url"`
	Workstream string     `json:"workstream"`
	FileStats  *FileStats `json:"file_stats,omitempty"`
}

// LogEntry es una fila de la tabla logs.
type LogEntry struct {
	ID         int    `json:"id"`
	LogLevel   string `json:"log_level"`
	LogMessage string `json:"log_message"`
	CreatedAt  string `json:"created_at"`
}

type ActivityUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ActivityLog es una fila de la tabla activityLogs.
type ActivityLog struct {
	ID         int          `json:"id"`
	User       ActivityUser `json:"user"`
	Action     string       `json:"action"`
	Resource   string       `json:"resource"`
	ResourceID string       `json:"resource_id"`
	Details    string       `json:"details"`
	Timestamp  string       `json:"timestamp"`
}

// UserInfo es una fila de la tabla users.
type UserInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	ProfilePicURL string `json:"profile_pic_url"`
	RoleID        int    `json:"role_id"`
	IsActive      bool   `json:"is_active"`
}

// RoleInfo es una fila de la tabla roles.
type RoleInfo struct {
	ID          int      `json:"id"`
	RoleID      int      `json:"role_id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Batch es una fila de la tabla uploads.
type Batch struct {
	UUID               string      `json:"uuid"`
	Name               string      `json:"name"`
	UserEmail          string      `json:"user_email"`
	UserName           string      `json:"user_name"`
	Workstream         string      `json:"workstream"`
	Status             BatchStatus `json:"status"`
	CreatedAt          string      `json:"created_at"`
	UpdatedAt          string      `json:"updated_at"`
	IsUploaded         bool        `json:"is_uploaded"`
	Files              []string    `json:"files"`
	S3Path             string      `json:"s3_path"`
	DeliveryDate       string      `json:"delivery_date"`
	HasValidationError bool        `json:"has_validation_error"`
	Stats              *FileStats  `json:"stats,omitempty"`
}

// AnyInProgress es la condición de sondeo de la tabla uploads.
func AnyInProgress(p *Page[Batch]) bool {
	if p == nil {
		return false
	}
	for _, b := range p.Items {
		if b.Status == StatusInProgress {
			return true
		}
	}
	return false
}
