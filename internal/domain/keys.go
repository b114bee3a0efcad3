package domain

// KeyPrefix namespaces every Redis key and index owned by the service.
const KeyPrefix = "georag:"
