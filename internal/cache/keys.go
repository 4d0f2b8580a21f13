package cache

// Cache keys are the literal request parameters joined onto a fixed prefix.
// They are not escaped; ValidateKey guards the unsafe ones.

func PlatformsKey() string {
	return "platforms" + JSONSuffix
}

func FindTitleKey(title, platformID string) string {
	return "find_title_" + title + "_platform_" + platformID + JSONSuffix
}

func GameKey(gameID string) string {
	return "get_" + gameID + JSONSuffix
}

func GamePlatformKey(gameID, platformID string) string {
	return "get_" + gameID + "_platform_" + platformID + JSONSuffix
}

// CoversKey addresses the cover-art listing of a game on a platform.
func CoversKey(gameID, platformID string) string {
	return "covers_" + gameID + "_platform_" + platformID + JSONSuffix
}

// CoverImageKey addresses the front-cover image itself; ext includes the dot.
func CoverImageKey(gameID, platformID, ext string) string {
	return "cover_" + gameID + "_platform_" + platformID + ext
}
