// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "BirdRide")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/")

	viper.SetDefault("ebird.apikey", "")
	viper.SetDefault("ebird.baseurl", "https://api.ebird.org/v2")
	viper.SetDefault("ebird.timeout", 30)
	viper.SetDefault("ebird.ratelimitms", 100)
	viper.SetDefault("ebird.locale", "en")

	viper.SetDefault("route.radiuskm", 8.0)
	viper.SetDefault("route.backdays", 14)
	viper.SetDefault("route.maxpoints", 15)
	viper.SetDefault("route.proximitymiles", 10.0)

	viper.SetDefault("webserver.enabled", true)
	viper.SetDefault("webserver.port", "8080")
}
