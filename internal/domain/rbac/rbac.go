// Пакет rbac — роли пользователей AgriQCert и проверки прав.
// Роли плоские, без иерархии: каждая открывает свой набор операций.
// admin дополнительно получает права qa_agency при выпуске сертификатов.
package rbac

// Роли пользователей системы.
const (
	// RoleExporter — экспортёр: подаёт партии на сертификацию.
	RoleExporter = "exporter"
	// RoleQAAgency — QA-агентство: проводит инспекции, выпускает сертификаты.
	RoleQAAgency = "qa_agency"
	// RoleImporter — импортёр: проверяет сертификаты.
	RoleImporter = "importer"
	// RoleAdmin — администратор: полный доступ.
	RoleAdmin = "admin"
)

// validRoles — набор допустимых ролей.
var validRoles = map[string]bool{
	RoleExporter: true,
	RoleQAAgency: true,
	RoleImporter: true,
	RoleAdmin:    true,
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	return validRoles[role]
}

// CanSubmitBatch проверяет право подачи партии (exporter или admin).
func CanSubmitBatch(role string) bool {
	return role == RoleExporter || role == RoleAdmin
}

// CanManageInspections проверяет право планировать и вести инспекции
// (qa_agency или admin).
func CanManageInspections(role string) bool {
	return role == RoleQAAgency || role == RoleAdmin
}

// CanIssueCredential проверяет право выпуска сертификата
// (qa_agency или admin).
func CanIssueCredential(role string) bool {
	return role == RoleQAAgency || role == RoleAdmin
}
