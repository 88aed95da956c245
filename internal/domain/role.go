package domain

// RoleAdmin is the JWT role that may edit shop configuration and trigger
// maintenance. Storefront customers never hold a token.
const RoleAdmin = "admin"
