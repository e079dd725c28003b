package descriptor

// Recognized setting keys.
const (
	KeyPlugins             = "plugins"
	KeyVariant             = "variant"
	KeyNamespace           = "namespace"
	KeyApplicationID       = "application_id"
	KeyCompileSDK          = "compile_sdk"
	KeyMinSDK              = "min_sdk"
	KeyTargetSDK           = "target_sdk"
	KeyCompatibility       = "compatibility"
	KeyVersionCode         = "version_code"
	KeyVersionName         = "version_name"
	KeySourceRoot          = "source_root"
	KeySigning             = "signing"
	KeyApplicationIDSuffix = "application_id_suffix"
	KeyVersionNameSuffix   = "version_name_suffix"
)

const (
	// VariantBlock is the HCL block type that declares a variant.
	VariantBlock = "variant"

	// VariantsField is the CUE field holding the variant list.
	VariantsField = "variants"

	// VariantNameField names a variant inside the CUE variant list.
	VariantNameField = "name"
)

// reservedKeys name the plugin list and the variant name. They can never be
// used as setting names.
var reservedKeys = map[string]bool{
	KeyPlugins: true,
	KeyVariant: true,
}

// keyAliases maps the camelCase spellings used by Gradle build scripts to
// canonical keys.
var keyAliases = map[string]string{
	"compileSdk":          KeyCompileSDK,
	"compileSdkVersion":   KeyCompileSDK,
	"minSdk":              KeyMinSDK,
	"minSdkVersion":       KeyMinSDK,
	"targetSdk":           KeyTargetSDK,
	"targetSdkVersion":    KeyTargetSDK,
	"applicationId":       KeyApplicationID,
	"applicationIdSuffix": KeyApplicationIDSuffix,
	"versionCode":         KeyVersionCode,
	"versionName":         KeyVersionName,
	"versionNameSuffix":   KeyVersionNameSuffix,
	"signingConfig":       KeySigning,
	"sourceCompatibility": KeyCompatibility,
	"source":              KeySourceRoot,
}

// CanonicalKey returns the canonical spelling of key.
func CanonicalKey(key string) string {
	if canonical, ok := keyAliases[key]; ok {
		return canonical
	}
	return key
}

// KnownKeys lists the keys with a dedicated ResolvedConfig field, in plan
// order.
func KnownKeys() []string {
	return []string{
		KeyNamespace,
		KeyApplicationID,
		KeyMinSDK,
		KeyTargetSDK,
		KeyCompileSDK,
		KeyCompatibility,
		KeySigning,
		KeySourceRoot,
		KeyVersionCode,
		KeyVersionName,
	}
}
