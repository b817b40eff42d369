package common

// AuthorizationHeaderName is the HTTP header carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// OrderNumberPrefix precedes the zero-padded sequence of every order number.
const OrderNumberPrefix = "DT"
