package common

// AuthorizationHeaderName carries the access token as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme prefix expected in the Authorization header.
const BearerPrefix = "Bearer "

// AudioContentType is the target container for every stored track.
const AudioContentType = "audio/mpeg"

// AudioExtension is appended to file names derived by the ingestion pipeline.
const AudioExtension = ".mp3"
