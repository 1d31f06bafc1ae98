package errorutil

// Stable error codes returned to API clients.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"

	CodeClientNotFound         = "CLIENT_NOT_FOUND"
	CodeInvalidClientRole      = "INVALID_CLIENT_ROLE"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeTicketAlreadyOpen      = "TICKET_ALREADY_OPEN"
	CodeInvalidAttachmentURL   = "INVALID_ATTACHMENT_URL"
	CodeStorageUnavailable     = "STORAGE_UNAVAILABLE"
	CodeBucketError            = "BUCKET_ERROR"
	CodeTicketNumberConflict   = "TICKET_NUMBER_CONFLICT"
	CodeHelpdeskCreationFailed = "HELPDESK_CREATION_FAILED"
	CodeHelpdeskNotFound       = "HELPDESK_NOT_FOUND"
	CodeAssignedUserNotFound   = "ASSIGNED_USER_NOT_FOUND"
	CodeInvalidAssigneeRole    = "INVALID_ASSIGNEE_ROLE"
	CodeHelpdeskUpdateFailed   = "HELPDESK_UPDATE_FAILED"
	CodeCannotDeleteOpenTicket = "CANNOT_DELETE_OPEN_TICKET"
	CodeHelpdeskDeleteFailed   = "HELPDESK_DELETE_FAILED"
	CodeAuthorNotFound         = "AUTHOR_NOT_FOUND"
	CodeAuthorRoleMismatch     = "AUTHOR_ROLE_MISMATCH"
	CodeUpdateTimestampFailed  = "UPDATE_TIMESTAMP_FAILED"

	CodeEmailTaken         = "EMAIL_ALREADY_REGISTERED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)
