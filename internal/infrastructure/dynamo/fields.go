package dynamo

// DynamoDB attribute names used in update expressions across repos.
const (
	fieldFirstName   = "first_name"
	fieldLastName    = "last_name"
	fieldEmail       = "email"
	fieldAddress     = "address"
	fieldZip         = "zip"
	fieldCity        = "city"
	fieldCompany     = "company"
	fieldCountryCode = "country_code"
	fieldUpdatedAt   = "updated_at"
)
