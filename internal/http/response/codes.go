package response

// 业务状态码，200 表示成功
const (
	CodeOK           = 200
	CodeUnpaid       = 300
	CodeChannelEmpty = 400
	CodeForbidden    = 403
	CodeUnsupported  = 404
	CodeSysError     = 500
)
