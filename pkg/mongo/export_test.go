package mongo

var ClientOptions = clientOptions
